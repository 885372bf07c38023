package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AnswerService bridges a follow-up question to the generation backend and
// relays tokens to the caller in arrival order. One goroutine per call; an
// arbitrary number of calls may run concurrently.
type AnswerService struct {
	gen         Generator
	specSheet   string
	idleTimeout time.Duration
	logger      *zap.SugaredLogger
}

func NewAnswerService(gen Generator, specSheet string, idleTimeout time.Duration, logger *zap.SugaredLogger) *AnswerService {
	return &AnswerService{
		gen:         gen,
		specSheet:   specSheet,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Ask streams the answer to one question about the given model. The channel
// carries zero or more text tokens followed by exactly one done or error
// token, then closes. Once ctx cancellation is detected nothing more is
// emitted and the backend stream is abandoned (its context is ctx, so the
// backend call is torn down too).
func (s *AnswerService) Ask(ctx context.Context, model, question string) <-chan StreamToken {
	out := make(chan StreamToken)

	go func() {
		defer close(out)

		stream, err := s.gen.Stream(ctx, BuildPrompt(model, s.specSheet, question))
		if err != nil {
			s.logger.Warnw("failed to open generation stream", "model", model, "error", err)
			s.emit(ctx, out, StreamToken{Err: err.Error()})
			return
		}

		s.relay(ctx, stream, out)
	}()

	return out
}

type readResult struct {
	text string
	err  error
}

func (s *AnswerService) relay(ctx context.Context, stream TokenStream, out chan<- StreamToken) {
	reads := make(chan readResult)
	go func() {
		for {
			text, err := stream.Next()
			select {
			case reads <- readResult{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(s.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client went away; emit nothing further.
			return

		case <-idle.C:
			s.logger.Warnw("generation stream idle timeout", "timeout", s.idleTimeout)
			s.emit(ctx, out, StreamToken{Err: "generation backend timed out"})
			return

		case r := <-reads:
			if ctx.Err() != nil {
				// Cancellation can race a pending read; once the client is
				// gone nothing may be emitted, whatever the read carried.
				return
			}
			if errors.Is(r.err, ErrStreamDone) {
				s.emit(ctx, out, StreamToken{Done: true})
				return
			}
			if r.err != nil {
				s.emit(ctx, out, StreamToken{Err: r.err.Error()})
				return
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(s.idleTimeout)
			if r.text == "" {
				continue
			}
			if !s.emit(ctx, out, StreamToken{Text: r.text}) {
				return
			}
		}
	}
}

func (s *AnswerService) emit(ctx context.Context, out chan<- StreamToken, tok StreamToken) bool {
	select {
	case out <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}
