package store

import "time"

// Exchange is one logged follow-up question and how it ended.
type Exchange struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// Recommendation is one logged scoring result.
type Recommendation struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ProductID   string    `json:"product_id"`
	Score       int       `json:"score"`
	AnswersJSON string    `json:"answers_json"`
	CreatedAt   time.Time `json:"created_at"`
}
