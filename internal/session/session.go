package session

import (
	"sync"

	"github.com/google/uuid"

	"car-advisor/internal/recommend"
)

// MaxQuestions is the follow-up quota per recommendation. The sixth attempt
// exhausts the session.
const MaxQuestions = 5

// Phase is the state-machine state the session is currently in.
type Phase string

const (
	PhaseInit         Phase = "init"
	PhaseQ1Asked      Phase = "q1_asked"
	PhaseQ2Asked      Phase = "q2_asked"
	PhaseQ3Collecting Phase = "q3_collecting"
	PhaseStyleAsked   Phase = "style_asked"
	PhaseChatting     Phase = "chatting"
	PhaseExhausted    Phase = "exhausted"
)

// Answers accumulates questionnaire responses. Scalar answers are
// first-writer-wins: once set, a repeated answer is acknowledged but never
// overwrites. Features is a toggle set.
type Answers struct {
	DailyDistance   *int         `json:"daily_distance"`
	Usage           *int         `json:"usage"`
	Features        map[int]bool `json:"features"`
	StylePreference *int         `json:"style_preference"`
}

func newAnswers() Answers {
	return Answers{Features: make(map[int]bool)}
}

// Clone returns a copy sharing no mutable state with the receiver. Copies
// handed out of the store's lock must use this, or they alias the live
// Features map.
func (a Answers) Clone() Answers {
	c := Answers{Features: make(map[int]bool, len(a.Features))}
	for f, on := range a.Features {
		c.Features[f] = on
	}
	if a.DailyDistance != nil {
		v := *a.DailyDistance
		c.DailyDistance = &v
	}
	if a.Usage != nil {
		v := *a.Usage
		c.Usage = &v
	}
	if a.StylePreference != nil {
		v := *a.StylePreference
		c.StylePreference = &v
	}
	return c
}

// FeatureList returns the selected feature indices in ascending order.
func (a Answers) FeatureList() []int {
	list := make([]int, 0, len(a.Features))
	for f := 0; f < 6; f++ {
		if a.Features[f] {
			list = append(list, f)
		}
	}
	return list
}

// Session is one user's conversational context, owned exclusively by the
// Store. All mutation happens through Store.Mutate, which holds mu, so two
// rapid duplicate button presses for the same session serialize while other
// sessions proceed concurrently.
type Session struct {
	ID             string             `json:"id"`
	Phase          Phase              `json:"phase"`
	Answers        Answers            `json:"answers"`
	Recommendation *recommend.Ranking `json:"recommendation,omitempty"`
	FollowUpCount  int                `json:"follow_up_count"`

	mu sync.Mutex
}

// newSession starts in Q1Asked: creating a session is what presents the
// first question, mirroring the original /start flow. Init is re-entered
// only through Restart.
func newSession() *Session {
	return &Session{
		ID:      uuid.NewString(),
		Phase:   PhaseQ1Asked,
		Answers: newAnswers(),
	}
}

// RecommendedModel returns the id of the cached best match, if any.
func (s *Session) RecommendedModel() (string, bool) {
	if s.Recommendation == nil {
		return "", false
	}
	best, ok := s.Recommendation.Best()
	if !ok {
		return "", false
	}
	return best.ID, true
}

// QuestionsLeft reports the remaining follow-up quota.
func (s *Session) QuestionsLeft() int {
	left := MaxQuestions - s.FollowUpCount
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) reset() {
	s.Phase = PhaseInit
	s.Answers = newAnswers()
	s.Recommendation = nil
	s.FollowUpCount = 0
}
