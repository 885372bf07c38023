package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-advisor/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Entry{
		{ID: "suv-1", Profile: catalog.WeightProfile{
			DailyDistance: []int{2, 4, 5},
			Usage:         []int{2, 5, 4},
			Features:      []int{5, 4, 5, 5, 5, 4},
			Style:         catalog.StyleSUV,
		}},
		{ID: "sedan-1", Profile: catalog.WeightProfile{
			DailyDistance: []int{1, 3, 5},
			Usage:         []int{4, 2, 2},
			Features:      []int{5, 4, 3, 3, 5, 3},
			Style:         catalog.StyleSedan,
		}},
	})
	require.NoError(t, err)
	return cat
}

func newTestMachine(t *testing.T) (*Machine, *Session) {
	t.Helper()
	return NewMachine(testCatalog(t), 2), newSession()
}

func apply(t *testing.T, m *Machine, s *Session, ev Event) Outcome {
	t.Helper()
	outcome, err := m.Apply(s, ev)
	require.NoError(t, err)
	return outcome
}

func completeQuestionnaire(t *testing.T, m *Machine, s *Session, style int) Outcome {
	t.Helper()
	apply(t, m, s, AnswerDailyDistance{Value: 1})
	apply(t, m, s, AnswerUsage{Value: 2})
	apply(t, m, s, FinishFeatures{})
	return apply(t, m, s, AnswerStyle{Value: style})
}

func TestQuestionnaireHappyPath(t *testing.T) {
	m, s := newTestMachine(t)
	assert.Equal(t, PhaseQ1Asked, s.Phase)

	assert.Equal(t, OutcomeAdvanced, apply(t, m, s, AnswerDailyDistance{Value: 2}))
	assert.Equal(t, PhaseQ2Asked, s.Phase)

	assert.Equal(t, OutcomeAdvanced, apply(t, m, s, AnswerUsage{Value: 1}))
	assert.Equal(t, PhaseQ3Collecting, s.Phase)

	assert.Equal(t, OutcomeFeatureAdded, apply(t, m, s, ToggleFeature{Feature: 0}))
	assert.Equal(t, OutcomeFeatureAdded, apply(t, m, s, ToggleFeature{Feature: 4}))
	assert.Equal(t, OutcomeAdvanced, apply(t, m, s, FinishFeatures{}))
	assert.Equal(t, PhaseStyleAsked, s.Phase)

	assert.Equal(t, OutcomeRecommended, apply(t, m, s, AnswerStyle{Value: 1}))
	assert.Equal(t, PhaseChatting, s.Phase)
	require.NotNil(t, s.Recommendation)

	model, ok := s.RecommendedModel()
	require.True(t, ok)
	assert.Equal(t, "suv-1", model)
	assert.Equal(t, 0, s.FollowUpCount)
}

func TestScalarAnswersAreFirstWriterWins(t *testing.T) {
	m, s := newTestMachine(t)

	apply(t, m, s, AnswerDailyDistance{Value: 0})
	assert.Equal(t, OutcomeIgnored, apply(t, m, s, AnswerDailyDistance{Value: 2}))
	assert.Equal(t, 0, *s.Answers.DailyDistance)
	assert.Equal(t, PhaseQ2Asked, s.Phase)
}

func TestToggleFeatureIsAnInvolution(t *testing.T) {
	m, s := newTestMachine(t)
	apply(t, m, s, AnswerDailyDistance{Value: 0})
	apply(t, m, s, AnswerUsage{Value: 0})

	assert.Empty(t, s.Answers.FeatureList())
	assert.Equal(t, OutcomeFeatureAdded, apply(t, m, s, ToggleFeature{Feature: 3}))
	assert.Equal(t, []int{3}, s.Answers.FeatureList())
	assert.Equal(t, OutcomeFeatureRemoved, apply(t, m, s, ToggleFeature{Feature: 3}))
	assert.Empty(t, s.Answers.FeatureList())
}

func TestFinishFeaturesWithEmptySetIsValid(t *testing.T) {
	m, s := newTestMachine(t)
	apply(t, m, s, AnswerDailyDistance{Value: 0})
	apply(t, m, s, AnswerUsage{Value: 0})

	assert.Equal(t, OutcomeAdvanced, apply(t, m, s, FinishFeatures{}))
	assert.Equal(t, PhaseStyleAsked, s.Phase)
}

func TestOutOfOrderEventsAreIgnored(t *testing.T) {
	m, s := newTestMachine(t)

	assert.Equal(t, OutcomeIgnored, apply(t, m, s, AnswerUsage{Value: 0}))
	assert.Equal(t, OutcomeIgnored, apply(t, m, s, ToggleFeature{Feature: 1}))
	assert.Equal(t, OutcomeIgnored, apply(t, m, s, FinishFeatures{}))
	assert.Equal(t, OutcomeIgnored, apply(t, m, s, AnswerStyle{Value: 0}))
	assert.Equal(t, PhaseQ1Asked, s.Phase)
	assert.Nil(t, s.Answers.Usage)
}

func TestNoMatchExhaustsSession(t *testing.T) {
	m, s := newTestMachine(t)

	outcome := completeQuestionnaire(t, m, s, 2) // Wagon: nothing matches
	assert.Equal(t, OutcomeNoMatch, outcome)
	assert.Equal(t, PhaseExhausted, s.Phase)
	require.NotNil(t, s.Recommendation)
	assert.True(t, s.Recommendation.NoMatch())

	_, ok := s.RecommendedModel()
	assert.False(t, ok)
}

func TestRestartDiscardsEverything(t *testing.T) {
	m, s := newTestMachine(t)
	completeQuestionnaire(t, m, s, 1)
	m.CompleteFollowUp(s, FollowUpAnswered)

	assert.Equal(t, OutcomeRestarted, apply(t, m, s, Restart{}))
	assert.Equal(t, PhaseInit, s.Phase)
	assert.Nil(t, s.Answers.DailyDistance)
	assert.Nil(t, s.Recommendation)
	assert.Equal(t, 0, s.FollowUpCount)

	// Init accepts the first answer again after a restart.
	assert.Equal(t, OutcomeAdvanced, apply(t, m, s, AnswerDailyDistance{Value: 1}))
}

func TestFollowUpQuota(t *testing.T) {
	m, s := newTestMachine(t)
	completeQuestionnaire(t, m, s, 1)

	for i := 0; i < MaxQuestions; i++ {
		require.NoError(t, m.BeginFollowUp(s))
		m.CompleteFollowUp(s, FollowUpAnswered)
	}
	assert.Equal(t, MaxQuestions, s.FollowUpCount)
	assert.Equal(t, PhaseChatting, s.Phase)

	err := m.BeginFollowUp(s)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, PhaseExhausted, s.Phase)
	assert.Equal(t, MaxQuestions, s.FollowUpCount)

	// Exhausted sessions refuse further chat outright.
	assert.ErrorIs(t, m.BeginFollowUp(s), ErrNotChatting)
}

func TestFollowUpReservationBlocksConcurrentOverrun(t *testing.T) {
	m, s := newTestMachine(t)
	completeQuestionnaire(t, m, s, 1)
	s.FollowUpCount = MaxQuestions - 1

	// An in-flight exchange holds the last slot, so a second attempt started
	// before it completes cannot pass the guard.
	require.NoError(t, m.BeginFollowUp(s))
	assert.Equal(t, MaxQuestions, s.FollowUpCount)

	assert.ErrorIs(t, m.BeginFollowUp(s), ErrQuotaExceeded)
	assert.Equal(t, MaxQuestions, s.FollowUpCount)

	// The held exchange is cancelled: its slot comes back and the premature
	// exhaustion is undone.
	m.CompleteFollowUp(s, FollowUpCancelled)
	assert.Equal(t, MaxQuestions-1, s.FollowUpCount)
	assert.Equal(t, PhaseChatting, s.Phase)
}

func TestAnswerStyleRetriesAfterEngineError(t *testing.T) {
	m := NewMachine(testCatalog(t), 0) // engine rejects a non-positive emphasis
	s := newSession()
	apply(t, m, s, AnswerDailyDistance{Value: 1})
	apply(t, m, s, AnswerUsage{Value: 2})
	apply(t, m, s, FinishFeatures{})

	_, err := m.Apply(s, AnswerStyle{Value: 1})
	require.Error(t, err)
	assert.Equal(t, PhaseStyleAsked, s.Phase)
	assert.Nil(t, s.Answers.StylePreference, "a failed style answer must not be recorded")

	// The answer was not burned, so the retry reaches the engine again
	// instead of being ignored.
	_, err = m.Apply(s, AnswerStyle{Value: 1})
	require.Error(t, err)
}

func TestFailedExchangeConsumesQuotaCancelledDoesNot(t *testing.T) {
	m, s := newTestMachine(t)
	completeQuestionnaire(t, m, s, 1)

	require.NoError(t, m.BeginFollowUp(s))
	m.CompleteFollowUp(s, FollowUpFailed)
	assert.Equal(t, 1, s.FollowUpCount)

	require.NoError(t, m.BeginFollowUp(s))
	m.CompleteFollowUp(s, FollowUpCancelled)
	assert.Equal(t, 1, s.FollowUpCount)
}

func TestBeginFollowUpOutsideChatPhase(t *testing.T) {
	m, s := newTestMachine(t)
	assert.ErrorIs(t, m.BeginFollowUp(s), ErrNotChatting)
}
