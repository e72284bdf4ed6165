package chunker

import (
	"errors"
	"fmt"
	"iter"

	"ragchat/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

var ErrInvalidWindow = errors.New("chunk overlap must be non-negative and smaller than a positive chunk size")

// Splitter yields the chunks of a text lazily and in order.
type Splitter interface {
	Chunks(text string) iter.Seq[string]
}

// New returns the splitter configured by strategy.
func New(strategy string, size, overlap int) (Splitter, error) {
	switch strategy {
	case config.SplitterWindow, "":
		return NewWindow(size, overlap)
	case config.SplitterRecursive:
		return NewRecursive(size, overlap)
	default:
		return nil, fmt.Errorf("unknown splitter %q", strategy)
	}
}

func validate(size, overlap int) error {
	if size <= 0 || overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidWindow, size, overlap)
	}
	return nil
}

// Window cuts fixed windows of size runes, each starting size-overlap runes
// after the previous one.
type Window struct {
	size    int
	overlap int
}

func NewWindow(size, overlap int) (*Window, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Window{size: size, overlap: overlap}, nil
}

func (w *Window) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		if len(runes) == 0 {
			return
		}
		step := w.size - w.overlap
		for start := 0; ; start += step {
			end := min(start+w.size, len(runes))
			if !yield(string(runes[start:end])) || end == len(runes) {
				return
			}
		}
	}
}

// Recursive splits on paragraph, line and word boundaries before
// falling back to characters.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
	fallback *Window
}

func NewRecursive(size, overlap int) (*Recursive, error) {
	fallback, err := NewWindow(size, overlap)
	if err != nil {
		return nil, err
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		fallback: fallback,
	}, nil
}

func (r *Recursive) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		parts, err := r.splitter.SplitText(text)
		if err != nil {
			log.Warn().Err(err).Msg("Recursive split failed, using fixed windows")
			r.fallback.Chunks(text)(yield)
			return
		}
		for _, part := range parts {
			if !yield(part) {
				return
			}
		}
	}
}
