package core

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"car-advisor/internal/catalog"
	"car-advisor/internal/recommend"
	"car-advisor/internal/session"
	"car-advisor/internal/store"
)

// ChatService drives sessions through the questionnaire and the bounded
// follow-up chat. It is the only component that touches the session store,
// the state machine, the scoring engine and the streaming answer service
// together.
type ChatService struct {
	sessions    *session.Store
	machine     *session.Machine
	answers     *AnswerService
	catalog     *catalog.Catalog
	webEmphasis int
	audit       *store.InteractionLog
	logger      *zap.SugaredLogger
}

func NewChatService(
	sessions *session.Store,
	machine *session.Machine,
	answers *AnswerService,
	cat *catalog.Catalog,
	webEmphasis int,
	audit *store.InteractionLog,
	logger *zap.SugaredLogger,
) *ChatService {
	return &ChatService{
		sessions:    sessions,
		machine:     machine,
		answers:     answers,
		catalog:     cat,
		webEmphasis: webEmphasis,
		audit:       audit,
		logger:      logger,
	}
}

// EventResult is what a decoded questionnaire event produced.
type EventResult struct {
	Outcome        session.Outcome    `json:"outcome"`
	Phase          session.Phase      `json:"phase"`
	Answers        session.Answers    `json:"answers"`
	Recommendation *recommend.Ranking `json:"recommendation,omitempty"`
	QuestionsLeft  int                `json:"questions_left"`
}

// CreateSession registers a new session; the caller is expected to present
// the first question.
func (s *ChatService) CreateSession() *session.Session {
	sess := s.sessions.Create()
	s.logger.Infow("session created", "session", sess.ID)
	s.audit.RecordSession(sess.ID)
	return sess
}

// GetSession returns the live session. Callers reading its fields should
// prefer SnapshotSession, which copies under the session lock.
func (s *ChatService) GetSession(id string) (*session.Session, error) {
	return s.sessions.Get(id)
}

// SessionSnapshot is a consistent copy of a session's observable state.
type SessionSnapshot struct {
	ID             string             `json:"id"`
	Phase          session.Phase      `json:"phase"`
	Answers        session.Answers    `json:"answers"`
	Recommendation *recommend.Ranking `json:"recommendation,omitempty"`
	QuestionsLeft  int                `json:"questions_left"`
}

// SnapshotSession copies the session's observable state under its lock.
func (s *ChatService) SnapshotSession(id string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.sessions.Mutate(id, func(sess *session.Session) error {
		snap = SessionSnapshot{
			ID:             sess.ID,
			Phase:          sess.Phase,
			Answers:        sess.Answers.Clone(),
			Recommendation: sess.Recommendation,
			QuestionsLeft:  sess.QuestionsLeft(),
		}
		return nil
	})
	return snap, err
}

// ApplyCallback decodes a chat-platform callback payload and applies the
// resulting event to the session under its lock.
func (s *ChatService) ApplyCallback(id, data string) (EventResult, error) {
	ev, err := session.ParseCallback(data)
	if err != nil {
		return EventResult{}, err
	}
	return s.ApplyEvent(id, ev)
}

// ApplyEvent applies a typed event to the session.
func (s *ChatService) ApplyEvent(id string, ev session.Event) (EventResult, error) {
	var res EventResult
	err := s.sessions.Mutate(id, func(sess *session.Session) error {
		outcome, err := s.machine.Apply(sess, ev)
		if err != nil {
			return err
		}
		res = EventResult{
			Outcome:        outcome,
			Phase:          sess.Phase,
			Answers:        sess.Answers.Clone(),
			Recommendation: sess.Recommendation,
			QuestionsLeft:  sess.QuestionsLeft(),
		}
		if outcome == session.OutcomeRecommended || outcome == session.OutcomeNoMatch {
			s.recordRecommendation(sess)
		}
		return nil
	})
	if err != nil {
		return EventResult{}, err
	}

	s.logger.Infow("event applied", "session", id, "outcome", res.Outcome, "phase", res.Phase)
	return res, nil
}

// Restart discards the session's answers and recommendation from any phase.
func (s *ChatService) Restart(id string) (EventResult, error) {
	return s.ApplyEvent(id, session.Restart{})
}

// RecommendDirect serves the stateless web submission: a complete Answers
// payload in, the full ranking out, scored with the web emphasis.
func (s *ChatService) RecommendDirect(in recommend.Input) (recommend.Ranking, error) {
	ranking, err := recommend.Recommend(in, s.catalog, recommend.Options{Emphasis: s.webEmphasis})
	if err != nil {
		return recommend.Ranking{}, err
	}
	if best, ok := ranking.Best(); ok {
		s.audit.RecordRecommendation("", best.ID, best.Score, marshalInput(in))
	}
	return ranking, nil
}

// AskFollowUp runs one quota-guarded follow-up exchange. The returned
// channel has the AnswerService contract. The guard reserves the quota slot
// under the session lock and the reservation is settled when the stream
// finishes, so the lock is never held for the duration of the backend call.
func (s *ChatService) AskFollowUp(ctx context.Context, id, question string) (<-chan StreamToken, error) {
	var model string
	err := s.sessions.Mutate(id, func(sess *session.Session) error {
		if err := s.machine.BeginFollowUp(sess); err != nil {
			return err
		}
		m, ok := sess.RecommendedModel()
		if !ok {
			return session.ErrNotChatting
		}
		model = m
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrQuotaExceeded) {
			s.logger.Infow("follow-up quota exhausted", "session", id)
			s.audit.RecordExchange(id, question, "quota_exceeded")
		}
		return nil, err
	}

	s.logger.Infow("follow-up question", "session", id, "model", model)

	tokens := s.answers.Ask(ctx, model, question)
	out := make(chan StreamToken)

	go func() {
		defer close(out)

		// The reserved slot is kept for answers (or errors) the client
		// actually received; a terminal token dropped on disconnect counts
		// as a cancelled exchange and refunds the slot.
		result := session.FollowUpCancelled
		for tok := range tokens {
			select {
			case out <- tok:
				if tok.Done {
					result = session.FollowUpAnswered
				} else if tok.Err != "" {
					result = session.FollowUpFailed
				}
			case <-ctx.Done():
			}
		}

		s.finishFollowUp(id, question, result)
	}()

	return out, nil
}

func (s *ChatService) finishFollowUp(id, question string, result session.FollowUpResult) {
	err := s.sessions.Mutate(id, func(sess *session.Session) error {
		s.machine.CompleteFollowUp(sess, result)
		return nil
	})
	if err != nil {
		// Session may have expired mid-stream; nothing left to account.
		s.logger.Warnw("could not record follow-up completion", "session", id, "error", err)
	}

	s.logger.Infow("follow-up finished", "session", id, "result", result)
	s.audit.RecordExchange(id, question, string(result))
}

func (s *ChatService) recordRecommendation(sess *session.Session) {
	if sess.Recommendation == nil {
		return
	}
	best, ok := sess.Recommendation.Best()
	if !ok {
		s.audit.RecordRecommendation(sess.ID, "", 0, marshalAnswers(sess.Answers))
		return
	}
	s.audit.RecordRecommendation(sess.ID, best.ID, best.Score, marshalAnswers(sess.Answers))
}

func marshalAnswers(a session.Answers) string {
	raw, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(raw)
}

func marshalInput(in recommend.Input) string {
	raw, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	return string(raw)
}
