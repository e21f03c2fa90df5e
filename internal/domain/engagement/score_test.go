package engagement

import (
	"testing"
	"time"
)

func TestScore(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		metrics Metrics
		elapsed time.Duration
		want    int
	}{
		{name: "optimal pace", metrics: Metrics{StepsCompleted: 4}, elapsed: 4 * time.Minute, want: 100},
		{name: "rushing", metrics: Metrics{StepsCompleted: 6}, elapsed: 2 * time.Minute, want: 70},
		{name: "slow", metrics: Metrics{StepsCompleted: 1}, elapsed: 10 * time.Minute, want: 50},
		{name: "under a minute counts as one", metrics: Metrics{StepsCompleted: 2}, elapsed: 10 * time.Second, want: 100},
		{name: "no steps", metrics: Metrics{}, elapsed: 0, want: 50},
		{name: "backtracks penalize", metrics: Metrics{StepsCompleted: 4, BacktrackCount: 3}, elapsed: 4 * time.Minute, want: 70},
		{name: "floored at zero", metrics: Metrics{StepsCompleted: 1, BacktrackCount: 9}, elapsed: 10 * time.Minute, want: 0},
		{name: "lower bound of optimal band", metrics: Metrics{StepsCompleted: 1}, elapsed: 2 * time.Minute, want: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := tc.metrics
			m.StartedAt = start
			if got := Score(m, start.Add(tc.elapsed)); got != tc.want {
				t.Fatalf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScore_NonIncreasingInBacktracks(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for _, elapsed := range []time.Duration{30 * time.Second, 3 * time.Minute, 20 * time.Minute} {
		for steps := 0; steps <= 12; steps++ {
			prev := Score(Metrics{StartedAt: start, StepsCompleted: steps}, start.Add(elapsed))
			for b := 1; b <= 12; b++ {
				got := Score(Metrics{StartedAt: start, StepsCompleted: steps, BacktrackCount: b}, start.Add(elapsed))
				if got > prev {
					t.Fatalf("score increased with backtracks: steps=%d b=%d %d > %d", steps, b, got, prev)
				}
				if got < 0 || got > 100 {
					t.Fatalf("score out of range: %d", got)
				}
				prev = got
			}
		}
	}
}

func TestInsightsFor(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	got := InsightsFor(Metrics{StartedAt: start, StepsCompleted: 6}, start.Add(5*time.Minute))
	if got.Score != 100 || !got.ShowPaymentQuestion || !got.ShowUrgencyQuestion || !got.ReadyForAdvancedQuestions {
		t.Fatalf("unexpected insights for engaged user: %+v", got)
	}

	got = InsightsFor(Metrics{StartedAt: start, StepsCompleted: 4, BacktrackCount: 4}, start.Add(4*time.Minute))
	if got.Score != 60 || got.ShowPaymentQuestion || got.ShowUrgencyQuestion || got.ReadyForAdvancedQuestions {
		t.Fatalf("unexpected insights at the payment threshold: %+v", got)
	}

	got = InsightsFor(Metrics{StartedAt: start, StepsCompleted: 5, BacktrackCount: 3}, start.Add(5*time.Minute))
	if !got.ShowPaymentQuestion || got.ReadyForAdvancedQuestions {
		t.Fatalf("unexpected insights with score 70: %+v", got)
	}
}
