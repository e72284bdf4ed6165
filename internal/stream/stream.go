package stream

import (
	"context"
	"iter"
	"strings"
	"time"
)

const DefaultDelay = 100 * time.Millisecond

// Tokens splits an answer on whitespace and yields each word followed by a space.
func Tokens(answer string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, word := range strings.Fields(answer) {
			if !yield(word + " ") {
				return
			}
		}
	}
}

// Streamer paces the tokens of a finished answer. It only affects
// presentation, the answer is complete before streaming starts.
type Streamer struct {
	Delay time.Duration
	// Sleep replaces the real timer in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(delay time.Duration) *Streamer {
	return &Streamer{Delay: delay}
}

// Seq yields the tokens of answer with the delay between them. It stops
// when ctx is done.
func (s *Streamer) Seq(ctx context.Context, answer string) iter.Seq[string] {
	return func(yield func(string) bool) {
		first := true
		for token := range Tokens(answer) {
			if !first {
				if err := s.wait(ctx); err != nil {
					return
				}
			}
			first = false
			if !yield(token) {
				return
			}
		}
	}
}

// Stream hands every token to emit. It returns the first emit error, or
// the context error when streaming was cut short.
func (s *Streamer) Stream(ctx context.Context, answer string, emit func(token string) error) error {
	first := true
	for token := range Tokens(answer) {
		if !first {
			if err := s.wait(ctx); err != nil {
				return err
			}
		}
		first = false
		if err := emit(token); err != nil {
			return err
		}
	}
	return nil
}

func (s *Streamer) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	if s.Sleep != nil {
		return s.Sleep(ctx, s.Delay)
	}

	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
