package engagement

import "time"

// Metrics is the running tally of one onboarding session.
type Metrics struct {
	StartedAt      time.Time `json:"startedAt"`
	StepsCompleted int       `json:"stepsCompleted"`
	BacktrackCount int       `json:"backtrackCount"`
}

const (
	paceOptimal = 100
	paceRushing = 70
	paceSlow    = 50

	backtrackPenalty = 10
)

// Insights gates which optional questions are worth asking.
type Insights struct {
	Score                     int  `json:"score"`
	ShowPaymentQuestion       bool `json:"shouldShowPaymentQuestion"`
	ShowUrgencyQuestion       bool `json:"shouldShowUrgencyQuestion"`
	ReadyForAdvancedQuestions bool `json:"readyForAdvancedQuestions"`
}

// StepsPerMinute divides by at least one minute so early answers are not inflated.
func StepsPerMinute(m Metrics, now time.Time) float64 {
	minutes := now.Sub(m.StartedAt).Minutes()
	if minutes < 1 {
		minutes = 1
	}
	return float64(m.StepsCompleted) / minutes
}

// Score rates pacing between 0 and 100 and subtracts 10 per backtrack.
func Score(m Metrics, now time.Time) int {
	spm := StepsPerMinute(m, now)

	pace := paceSlow
	switch {
	case spm >= 0.5 && spm <= 2:
		pace = paceOptimal
	case spm > 2:
		pace = paceRushing
	}

	backtracks := max(m.BacktrackCount, 0)
	return max(0, pace-backtrackPenalty*backtracks)
}

func InsightsFor(m Metrics, now time.Time) Insights {
	score := Score(m, now)
	steps := m.StepsCompleted
	return Insights{
		Score:                     score,
		ShowPaymentQuestion:       score > 60 && steps >= 4,
		ShowUrgencyQuestion:       score > 50 && steps >= 6,
		ReadyForAdvancedQuestions: score > 70 && steps >= 5,
	}
}
