package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// InteractionLog is a best-effort audit trail of what the advisor did:
// created sessions, computed recommendations and follow-up exchange
// outcomes. It carries no session state; a log failure never fails a user
// request, which is why the Record methods return nothing and a nil log is
// a valid no-op.
type InteractionLog struct {
	db *sql.DB
}

func NewInteractionLog(dataSourceName string) (*InteractionLog, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := &InteractionLog{db: db}
	if err = log.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return log, nil
}

func (l *InteractionLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *InteractionLog) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS recommendations (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT, -- empty for stateless web submissions
        product_id TEXT NOT NULL, -- empty when no model matched
        score INTEGER NOT NULL,
        answers_json TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS exchanges (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        question TEXT NOT NULL,
        outcome TEXT NOT NULL CHECK (outcome IN ('answered', 'failed', 'cancelled', 'quota_exceeded')),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := l.db.Exec(schema)
	return err
}

// RecordSession notes that a session was created.
func (l *InteractionLog) RecordSession(id string) {
	if l == nil || l.db == nil {
		return
	}
	l.db.Exec("INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)", id, time.Now())
}

// RecordRecommendation notes a computed recommendation together with the
// answers that produced it.
func (l *InteractionLog) RecordRecommendation(sessionID, productID string, score int, answersJSON string) {
	if l == nil || l.db == nil {
		return
	}
	l.db.Exec(
		"INSERT INTO recommendations (id, session_id, product_id, score, answers_json, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.NewString(), sessionID, productID, score, answersJSON, time.Now(),
	)
}

// RecordExchange notes how one follow-up question ended.
func (l *InteractionLog) RecordExchange(sessionID, question, outcome string) {
	if l == nil || l.db == nil {
		return
	}
	l.db.Exec(
		"INSERT INTO exchanges (id, session_id, question, outcome, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), sessionID, question, outcome, time.Now(),
	)
}

// RecentRecommendations returns the latest scoring results, newest first.
func (l *InteractionLog) RecentRecommendations(limit int) ([]Recommendation, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	rows, err := l.db.Query(
		"SELECT id, session_id, product_id, score, answers_json, created_at FROM recommendations ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ProductID, &r.Score, &r.AnswersJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// RecentExchanges returns the latest follow-up exchanges, newest first.
func (l *InteractionLog) RecentExchanges(limit int) ([]Exchange, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	rows, err := l.db.Query(
		"SELECT id, session_id, question, outcome, created_at FROM exchanges ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Question, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}
