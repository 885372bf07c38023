package session

import (
	"errors"

	"car-advisor/internal/catalog"
	"car-advisor/internal/recommend"
)

// Outcome tags the result of applying an event. Illegal or duplicate events
// come back as Ignored, never as an error: the delivery channel just keeps
// the existing flow going.
type Outcome string

const (
	OutcomeAdvanced       Outcome = "advanced"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeFeatureAdded   Outcome = "feature_added"
	OutcomeFeatureRemoved Outcome = "feature_removed"
	OutcomeRecommended    Outcome = "recommended"
	OutcomeNoMatch        Outcome = "no_match"
	OutcomeRestarted      Outcome = "restarted"
)

// FollowUpResult describes how a streamed follow-up exchange ended.
type FollowUpResult string

const (
	// FollowUpAnswered and FollowUpFailed both consume quota: an answer (or
	// an error message) was delivered to the user.
	FollowUpAnswered FollowUpResult = "answered"
	FollowUpFailed   FollowUpResult = "failed"
	// FollowUpCancelled means the client went away mid-stream. No answer was
	// delivered, so no quota is consumed.
	FollowUpCancelled FollowUpResult = "cancelled"
)

// Machine applies questionnaire events to sessions. It is stateless apart
// from the catalog and the emphasis multiplier handed to the scoring engine,
// so one machine serves every session. Callers must hold the session's lock
// (Store.Mutate does).
type Machine struct {
	catalog  *catalog.Catalog
	emphasis int
}

func NewMachine(cat *catalog.Catalog, emphasis int) *Machine {
	return &Machine{catalog: cat, emphasis: emphasis}
}

// Apply validates the event against the session's phase and applies it.
func (m *Machine) Apply(s *Session, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case AnswerDailyDistance:
		if s.Phase != PhaseInit && s.Phase != PhaseQ1Asked {
			return OutcomeIgnored, nil
		}
		if s.Answers.DailyDistance != nil {
			return OutcomeIgnored, nil // first answer wins
		}
		v := e.Value
		s.Answers.DailyDistance = &v
		s.Phase = PhaseQ2Asked
		return OutcomeAdvanced, nil

	case AnswerUsage:
		if s.Phase != PhaseQ2Asked || s.Answers.Usage != nil {
			return OutcomeIgnored, nil
		}
		v := e.Value
		s.Answers.Usage = &v
		s.Phase = PhaseQ3Collecting
		return OutcomeAdvanced, nil

	case ToggleFeature:
		if s.Phase != PhaseQ3Collecting {
			return OutcomeIgnored, nil
		}
		if s.Answers.Features[e.Feature] {
			delete(s.Answers.Features, e.Feature)
			return OutcomeFeatureRemoved, nil
		}
		s.Answers.Features[e.Feature] = true
		return OutcomeFeatureAdded, nil

	case FinishFeatures:
		if s.Phase != PhaseQ3Collecting {
			return OutcomeIgnored, nil
		}
		// An empty feature set is a valid choice.
		s.Phase = PhaseStyleAsked
		return OutcomeAdvanced, nil

	case AnswerStyle:
		if s.Phase != PhaseStyleAsked || s.Answers.StylePreference != nil {
			return OutcomeIgnored, nil
		}
		return m.recommendNow(s, e.Value)

	case Restart:
		s.reset()
		return OutcomeRestarted, nil
	}

	return OutcomeIgnored, nil
}

// recommendNow runs the scoring engine once, caches the result and moves the
// session straight into the chat phase. A no-match outcome exhausts the
// session: there is nothing to chat about, only Restart recovers. The style
// answer is recorded only on success, so an engine failure leaves the
// session in StyleAsked and the answer can be retried.
func (m *Machine) recommendNow(s *Session, style int) (Outcome, error) {
	in := recommend.Input{
		DailyDistance:   *s.Answers.DailyDistance,
		Usage:           *s.Answers.Usage,
		Features:        s.Answers.FeatureList(),
		StylePreference: style,
	}

	ranking, err := recommend.Recommend(in, m.catalog, recommend.Options{Emphasis: m.emphasis})
	if err != nil {
		return OutcomeIgnored, err
	}

	s.Answers.StylePreference = &style
	s.Recommendation = &ranking
	s.FollowUpCount = 0

	if ranking.NoMatch() {
		s.Phase = PhaseExhausted
		return OutcomeNoMatch, nil
	}

	s.Phase = PhaseChatting
	return OutcomeRecommended, nil
}

// Errors for the follow-up guard, surfaced to the transport as distinct
// user-visible conditions.
var (
	ErrNotChatting   = errors.New("session is not in the chat phase")
	ErrQuotaExceeded = errors.New("follow-up question quota exceeded")
)

// BeginFollowUp checks the chat guard and reserves a quota slot. The
// reservation happens under the session lock, so concurrent in-flight
// exchanges can never push FollowUpCount past MaxQuestions. On quota
// exhaustion the session flips to Exhausted and no backend call may be made.
func (m *Machine) BeginFollowUp(s *Session) error {
	if s.Phase != PhaseChatting {
		return ErrNotChatting
	}
	if s.FollowUpCount >= MaxQuestions {
		s.Phase = PhaseExhausted
		return ErrQuotaExceeded
	}
	s.FollowUpCount++
	return nil
}

// CompleteFollowUp settles the reservation taken by BeginFollowUp. An
// answered or failed exchange keeps it; a cancelled exchange delivered
// nothing, so its slot is refunded. If a concurrent attempt exhausted the
// session while the refunded exchange was in flight, that exhaustion was
// premature and the session returns to Chatting.
func (m *Machine) CompleteFollowUp(s *Session, result FollowUpResult) {
	if result != FollowUpCancelled {
		return
	}
	if s.FollowUpCount > 0 {
		s.FollowUpCount--
	}
	if s.Phase == PhaseExhausted && s.FollowUpCount < MaxQuestions &&
		s.Recommendation != nil && !s.Recommendation.NoMatch() {
		s.Phase = PhaseChatting
	}
}
