package ai

import (
	"context"
	"errors"

	"dinecall/internal/modules/slots"
)

// ErrExtractionUnavailable means the extractor produced no usable update for the
// utterance (upstream unavailable, timeout, malformed output).
var ErrExtractionUnavailable = errors.New("extraction unavailable")

// Extractor defines the contract for turning one caller utterance into a
// partial slot update. Implementations may use known slots as context but must
// never invent values: a slot the caller did not mention stays absent.
type Extractor interface {
	Extract(ctx context.Context, utterance string, known slots.Set) (slots.Update, error)

	// Name identifies the backend in logs and the health endpoint.
	Name() string
}
