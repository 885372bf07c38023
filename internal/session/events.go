package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCallback wraps every ParseCallback failure so transports can
// classify it without string matching.
var ErrInvalidCallback = errors.New("invalid callback data")

// Event is a decoded questionnaire interaction. The chat-platform wire
// format ("Q1_0", "Q3_done", ...) is decoded here once; all transition logic
// operates on the typed variants, never on raw strings.
type Event interface {
	isEvent()
}

type AnswerDailyDistance struct{ Value int }

type AnswerUsage struct{ Value int }

type ToggleFeature struct{ Feature int }

type FinishFeatures struct{}

type AnswerStyle struct{ Value int }

type Restart struct{}

func (AnswerDailyDistance) isEvent() {}
func (AnswerUsage) isEvent()         {}
func (ToggleFeature) isEvent()       {}
func (FinishFeatures) isEvent()      {}
func (AnswerStyle) isEvent()         {}
func (Restart) isEvent()             {}

// ParseCallback decodes a chat-platform callback payload into a typed event.
// Unknown tags or out-of-range values are rejected here; they never reach
// the state machine.
func ParseCallback(data string) (Event, error) {
	data = strings.TrimSpace(data)
	if data == "restart" {
		return Restart{}, nil
	}

	tag, value, found := strings.Cut(data, "_")
	if !found {
		return nil, fmt.Errorf("%w: malformed payload %q", ErrInvalidCallback, data)
	}

	if tag == "Q3" && value == "done" {
		return FinishFeatures{}, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed value in %q", ErrInvalidCallback, data)
	}

	switch tag {
	case "Q1":
		if n < 0 || n > 2 {
			return nil, fmt.Errorf("%w: daily distance answer out of range in %q", ErrInvalidCallback, data)
		}
		return AnswerDailyDistance{Value: n}, nil
	case "Q2":
		if n < 0 || n > 2 {
			return nil, fmt.Errorf("%w: usage answer out of range in %q", ErrInvalidCallback, data)
		}
		return AnswerUsage{Value: n}, nil
	case "Q3":
		if n < 0 || n > 5 {
			return nil, fmt.Errorf("%w: feature index out of range in %q", ErrInvalidCallback, data)
		}
		return ToggleFeature{Feature: n}, nil
	case "Q4":
		if n < 0 || n > 3 {
			return nil, fmt.Errorf("%w: style answer out of range in %q", ErrInvalidCallback, data)
		}
		return AnswerStyle{Value: n}, nil
	}

	return nil, fmt.Errorf("%w: unknown tag in %q", ErrInvalidCallback, data)
}
