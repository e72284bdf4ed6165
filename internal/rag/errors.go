package rag

import (
	"context"
	"errors"
	"fmt"
	"net"
)

const (
	StageRetrieve    = "retrieve"
	StageReformulate = "reformulate"
	StagePrompt      = "prompt"
	StageGenerate    = "generate"
)

var (
	// ErrNoAnswer is matched by every *GenerationError.
	ErrNoAnswer = errors.New("no answer available")
	ErrNoIndex  = errors.New("no documents have been uploaded")
	ErrNoText   = errors.New("no text could be extracted from the uploaded files")
)

// GenerationError is the absent answer, with the stage that failed.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNoAnswer, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrNoAnswer
}

// Temporary reports whether the cause looks like a network or timeout
// failure that may succeed when asked again.
func (e *GenerationError) Temporary() bool {
	var netErr net.Error
	return errors.Is(e.Err, context.DeadlineExceeded) || errors.As(e.Err, &netErr)
}

// UserMessage maps pipeline errors to the text shown to the user.
func UserMessage(err error) string {
	var genErr *GenerationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoIndex):
		return "Please upload documents before asking questions."
	case errors.Is(err, ErrNoText):
		return "No text could be extracted from the uploaded files."
	case errors.As(err, &genErr) && genErr.Temporary():
		return "The model could not be reached, please try again."
	case errors.Is(err, ErrNoAnswer):
		return "No answer could be generated for this question."
	default:
		return "Something went wrong, please try again."
	}
}
