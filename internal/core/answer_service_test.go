package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenerator scripts the backend: a list of chunks, optional failures,
// and a record of whether the stream's context was cancelled.
type fakeGenerator struct {
	mu        sync.Mutex
	chunks    []string
	openErr   error         // fail Stream itself
	streamErr error         // fail after the chunks instead of finishing
	hang      bool          // after the chunks, block until ctx is done
	gate      chan struct{} // if set, each stream waits for a release before finishing

	calls     int
	cancelled bool
}

func (g *fakeGenerator) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.openErr != nil {
		return nil, g.openErr
	}
	return &fakeStream{gen: g, ctx: ctx}, nil
}

func (g *fakeGenerator) sawCancellation() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeStream struct {
	gen *fakeGenerator
	ctx context.Context
	i   int
}

func (s *fakeStream) Next() (string, error) {
	g := s.gen
	if s.i < len(g.chunks) {
		chunk := g.chunks[s.i]
		s.i++
		return chunk, nil
	}
	if g.gate != nil {
		<-g.gate
	}
	if g.hang {
		<-s.ctx.Done()
		g.mu.Lock()
		g.cancelled = true
		g.mu.Unlock()
		return "", s.ctx.Err()
	}
	if g.streamErr != nil {
		return "", g.streamErr
	}
	return "", ErrStreamDone
}

func newTestAnswerService(gen Generator, idle time.Duration) *AnswerService {
	return NewAnswerService(gen, "spec sheet", idle, zap.NewNop().Sugar())
}

func collect(t *testing.T, tokens <-chan StreamToken) []StreamToken {
	t.Helper()
	var out []StreamToken
	for tok := range tokens {
		out = append(out, tok)
	}
	return out
}

func TestAskRelaysTokensInOrder(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"The ", "EX90 ", "seats 7."}}
	svc := newTestAnswerService(gen, time.Second)

	tokens := collect(t, svc.Ask(context.Background(), "EX90", "seats?"))

	require.Len(t, tokens, 4)
	assert.Equal(t, StreamToken{Text: "The "}, tokens[0])
	assert.Equal(t, StreamToken{Text: "EX90 "}, tokens[1])
	assert.Equal(t, StreamToken{Text: "seats 7."}, tokens[2])
	assert.Equal(t, StreamToken{Done: true}, tokens[3])
}

func TestAskImmediateBackendFailure(t *testing.T) {
	gen := &fakeGenerator{openErr: errors.New("backend unreachable")}
	svc := newTestAnswerService(gen, time.Second)

	tokens := collect(t, svc.Ask(context.Background(), "EX90", "seats?"))

	require.Len(t, tokens, 1)
	assert.Equal(t, "backend unreachable", tokens[0].Err)
	assert.Empty(t, tokens[0].Text)
	assert.False(t, tokens[0].Done)
}

func TestAskMidStreamFailureEmitsSingleErrorToken(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"partial"}, streamErr: errors.New("boom")}
	svc := newTestAnswerService(gen, time.Second)

	tokens := collect(t, svc.Ask(context.Background(), "EX90", "seats?"))

	require.Len(t, tokens, 2)
	assert.Equal(t, "partial", tokens[0].Text)
	assert.Equal(t, "boom", tokens[1].Err)
}

func TestAskCancellationStopsEmissionAndBackend(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"first"}, hang: true}
	svc := newTestAnswerService(gen, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	tokens := svc.Ask(ctx, "EX90", "seats?")

	first := <-tokens
	assert.Equal(t, "first", first.Text)

	cancel()

	// The channel must close without a done or error marker.
	for tok := range tokens {
		assert.Failf(t, "unexpected token after cancellation", "%+v", tok)
	}

	require.Eventually(t, gen.sawCancellation, time.Second, 5*time.Millisecond,
		"backend stream was not cancelled")
}

func TestAskIdleTimeout(t *testing.T) {
	gen := &fakeGenerator{hang: true}
	svc := newTestAnswerService(gen, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens := collect(t, svc.Ask(ctx, "EX90", "seats?"))

	require.Len(t, tokens, 1)
	assert.Equal(t, "generation backend timed out", tokens[0].Err)
}
