package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dinecall/internal/modules/slots"
)

// Chain tries each extractor in order and returns the first successful update.
// A typical chain is a hosted model followed by the rules extractor.
type Chain struct {
	extractors []Extractor
	log        *zap.Logger
}

func NewChain(log *zap.Logger, extractors ...Extractor) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{extractors: extractors, log: log}
}

func (c *Chain) Name() string {
	if len(c.extractors) == 0 {
		return "chain"
	}
	return c.extractors[0].Name()
}

func (c *Chain) Extract(ctx context.Context, utterance string, known slots.Set) (slots.Update, error) {
	var errs []error
	for _, ex := range c.extractors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		u, err := ex.Extract(ctx, utterance, known)
		if err == nil {
			return u, nil
		}
		c.log.Warn("extractor failed", zap.String("extractor", ex.Name()), zap.Error(err))
		errs = append(errs, err)
	}
	return slots.Update{}, fmt.Errorf("%w: %v", ErrExtractionUnavailable, errors.Join(errs...))
}
