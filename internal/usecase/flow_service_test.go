package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/infrastructure/repository/memory"
	onboardingmock "github.com/granada-os/personalization/internal/mocks/domain/onboarding"
	"github.com/granada-os/personalization/internal/platform/id"
	"github.com/granada-os/personalization/internal/platform/logging"
)

type recordingRegistrar struct {
	called bool
	reg    Registration
	err    error
}

func (r *recordingRegistrar) Register(_ context.Context, reg Registration) (RegisteredAccount, error) {
	r.called = true
	r.reg = reg
	if r.err != nil {
		return RegisteredAccount{}, r.err
	}
	return RegisteredAccount{UserID: "user-1", Email: reg.Profile.Email}, nil
}

func newFlowServiceForTest(registrar AccountRegistrar) (*FlowService, *memory.SessionRepository, *memory.ProgressRepository) {
	sessions := memory.NewSessionRepository(0)
	progress := memory.NewProgressRepository()
	service := NewFlowService(sessions, progress, registrar, &id.Sequence{IDs: []string{"sess-1", "sess-2"}}, logging.NewNop())
	return service, sessions, progress
}

func answerAll(t *testing.T, service *FlowService, sessionID string, answers [][2]string) FlowView {
	t.Helper()

	var view FlowView
	for _, a := range answers {
		var err error
		view, err = service.Answer(t.Context(), AnswerInput{SessionID: sessionID, StepID: a[0], Value: a[1]})
		require.NoError(t, err, "answer %s", a[0])
	}
	return view
}

var criticalAnswers = [][2]string{
	{onboarding.FieldFirstName, "Amani"},
	{onboarding.FieldLastName, "Wanjiru"},
	{onboarding.FieldEmail, "amani@example.com"},
	{onboarding.FieldPassword, "supersecret"},
	{onboarding.FieldCountry, "Kenya"},
	{onboarding.FieldUserType, "student"},
}

func TestFlowService_StartAndAnswer(t *testing.T) {
	t.Parallel()

	service, _, progress := newFlowServiceForTest(nil)
	view, err := service.Start(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", view.Session.ID)
	require.NotNil(t, view.Step)
	assert.Equal(t, onboarding.FieldFirstName, view.Step.ID)
	assert.Equal(t, 0, view.Completion)

	view = answerAll(t, service, "sess-1", criticalAnswers[:3])
	require.NotNil(t, view.Step)
	assert.Equal(t, onboarding.FieldPassword, view.Step.ID)
	assert.Equal(t, 3, view.Session.Metrics.StepsCompleted)

	saved, ok, err := progress.GetProgress(t.Context(), "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, onboarding.FieldPassword, saved.CurrentStep)
	assert.Equal(t, "Amani", saved.UserProfile.FirstName)
}

func TestFlowService_Answer_KeepsPasswordAsTyped(t *testing.T) {
	t.Parallel()

	service, sessions, _ := newFlowServiceForTest(nil)
	_, err := service.Start(t.Context())
	require.NoError(t, err)

	answerAll(t, service, "sess-1", [][2]string{
		{onboarding.FieldFirstName, "  Amani  "},
		{onboarding.FieldLastName, "Wanjiru"},
		{onboarding.FieldEmail, "amani@example.com"},
		{onboarding.FieldPassword, "  pass word  "},
	})

	stored, ok, err := sessions.GetSession(t.Context(), "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "  pass word  ", stored.Profile.Password)
	assert.Equal(t, "Amani", stored.Profile.FirstName)
}

func TestFlowService_Answer_RejectsInvalidValue(t *testing.T) {
	t.Parallel()

	service, _, _ := newFlowServiceForTest(nil)
	_, err := service.Start(t.Context())
	require.NoError(t, err)

	_, err = service.Answer(t.Context(), AnswerInput{SessionID: "sess-1", StepID: onboarding.FieldFirstName, Value: "A"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Answer(t.Context(), AnswerInput{SessionID: "sess-1", StepID: onboarding.FieldEmail, Value: "amani@example.com"})
	require.ErrorIs(t, err, ErrInvalidInput)

	view, err := service.Get(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Session.StepIndex)
}

func TestFlowService_Back_CountsOnlyRealMoves(t *testing.T) {
	t.Parallel()

	service, _, _ := newFlowServiceForTest(nil)
	_, err := service.Start(t.Context())
	require.NoError(t, err)

	view, err := service.Back(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Session.Metrics.BacktrackCount)

	answerAll(t, service, "sess-1", criticalAnswers[:1])
	view, err = service.Back(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Session.Metrics.BacktrackCount)
	assert.Equal(t, onboarding.FieldFirstName, view.Step.ID)
}

func TestFlowService_ConcurrentCallsDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	service, _, _ := newFlowServiceForTest(nil)
	_, err := service.Start(t.Context())
	require.NoError(t, err)

	const callers = 16
	var (
		wg       conc.WaitGroup
		accepted atomic.Int32
	)
	for range callers {
		wg.Go(func() {
			_, err := service.Answer(context.Background(), AnswerInput{SessionID: "sess-1", StepID: onboarding.FieldFirstName, Value: "Amani"})
			if err == nil {
				accepted.Add(1)
			}
		})
	}
	wg.Wait()

	view, err := service.Get(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, accepted.Load(), "only one caller may answer the first step")
	assert.Equal(t, 1, view.Session.StepIndex)
	assert.Equal(t, 1, view.Session.Metrics.StepsCompleted)

	answerAll(t, service, "sess-1", criticalAnswers[1:4])
	var backs conc.WaitGroup
	for range 3 {
		backs.Go(func() {
			_, _ = service.Back(context.Background(), "sess-1")
		})
	}
	backs.Wait()

	view, err = service.Get(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Session.StepIndex)
	assert.Equal(t, 3, view.Session.Metrics.BacktrackCount)
}

func TestFlowService_UnknownSession(t *testing.T) {
	t.Parallel()

	service, _, _ := newFlowServiceForTest(nil)
	_, err := service.Get(t.Context(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = service.Insights(t.Context(), " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFlowService_Submit(t *testing.T) {
	t.Parallel()

	t.Run("missing critical fields", func(t *testing.T) {
		t.Parallel()

		registrar := &recordingRegistrar{}
		service, _, _ := newFlowServiceForTest(registrar)
		_, err := service.Start(t.Context())
		require.NoError(t, err)
		answerAll(t, service, "sess-1", criticalAnswers[:2])

		_, err = service.Submit(t.Context(), SubmitInput{SessionID: "sess-1"})
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), onboarding.FieldEmail)
		assert.False(t, registrar.called)
	})

	t.Run("registers and clears state", func(t *testing.T) {
		t.Parallel()

		registrar := &recordingRegistrar{}
		service, sessions, progress := newFlowServiceForTest(registrar)
		_, err := service.Start(t.Context())
		require.NoError(t, err)
		answerAll(t, service, "sess-1", criticalAnswers)

		account, err := service.Submit(t.Context(), SubmitInput{SessionID: "sess-1", Language: "sw"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", account.UserID)
		assert.Equal(t, "supersecret", registrar.reg.Profile.Password)
		assert.Equal(t, "Kenya", registrar.reg.Country)
		assert.Equal(t, "sw", registrar.reg.Language)

		_, ok, _ := sessions.GetSession(t.Context(), "sess-1")
		assert.False(t, ok)
		_, ok, _ = progress.GetProgress(t.Context(), "sess-1")
		assert.False(t, ok)
	})

	t.Run("registrar failure keeps the session", func(t *testing.T) {
		t.Parallel()

		registrar := &recordingRegistrar{err: errors.New("backend down")}
		service, sessions, _ := newFlowServiceForTest(registrar)
		_, err := service.Start(t.Context())
		require.NoError(t, err)
		answerAll(t, service, "sess-1", criticalAnswers)

		_, err = service.Submit(t.Context(), SubmitInput{SessionID: "sess-1"})
		require.Error(t, err)
		_, ok, _ := sessions.GetSession(t.Context(), "sess-1")
		assert.True(t, ok)
	})

	t.Run("no registrar configured", func(t *testing.T) {
		t.Parallel()

		service, _, _ := newFlowServiceForTest(nil)
		_, err := service.Start(t.Context())
		require.NoError(t, err)
		answerAll(t, service, "sess-1", criticalAnswers)

		_, err = service.Submit(t.Context(), SubmitInput{SessionID: "sess-1"})
		require.ErrorIs(t, err, ErrDependencyUnavailable)
	})
}

func TestFlowService_ProgressSnapshotFailureDoesNotFailAnswer(t *testing.T) {
	t.Parallel()

	sessions := memory.NewSessionRepository(0)
	progress := onboardingmock.NewProgressRepository(t)
	progress.On("GetProgress", mock.Anything, "sess-1").Return(onboarding.Progress{}, false, nil).Once()
	progress.On("UpsertProgress", mock.Anything, "sess-1", mock.Anything).Return(errors.New("db down")).Once()

	service := NewFlowService(sessions, progress, nil, &id.Sequence{IDs: []string{"sess-1"}}, logging.NewNop())
	service.now = func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) }

	_, err := service.Start(t.Context())
	require.NoError(t, err)
	view, err := service.Answer(t.Context(), AnswerInput{SessionID: "sess-1", Value: "Amani"})
	require.NoError(t, err)
	assert.Equal(t, "Amani", view.Session.Profile.FirstName)
}
