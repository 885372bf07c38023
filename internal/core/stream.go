package core

import (
	"context"
	"errors"
)

// ErrStreamDone is returned by TokenStream.Next when the backend has
// finished generating.
var ErrStreamDone = errors.New("token stream done")

// TokenStream yields generated text fragments in order.
type TokenStream interface {
	Next() (string, error)
}

// Generator starts one streamed generation per call. Implementations must
// honor ctx cancellation so an abandoned stream releases its backend
// resources.
type Generator interface {
	Stream(ctx context.Context, prompt string) (TokenStream, error)
}

// StreamToken is one fragment of a streamed answer: a text chunk, the
// completion marker, or a terminal error. Exactly one of the three is set.
type StreamToken struct {
	Text string `json:"text,omitempty"`
	Done bool   `json:"done,omitempty"`
	Err  string `json:"error,omitempty"`
}
