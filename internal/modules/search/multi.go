package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dinecall/internal/types"
)

// MultiSearcher fans a request out to several providers concurrently and
// concatenates their candidates in provider order. It fails only when every
// provider fails.
type MultiSearcher struct {
	providers []Searcher
	log       *zap.Logger
}

func NewMultiSearcher(log *zap.Logger, providers ...Searcher) *MultiSearcher {
	return &MultiSearcher{providers: providers, log: log}
}

func (m *MultiSearcher) Name() string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiSearcher) Search(ctx context.Context, req Request) ([]types.Venue, error) {
	type result struct {
		venues []types.Venue
		err    error
	}
	results := make([]result, len(m.providers))

	var wg sync.WaitGroup
	for i, p := range m.providers {
		wg.Add(1)
		go func(i int, p Searcher) {
			defer wg.Done()
			v, err := p.Search(ctx, req)
			results[i] = result{venues: v, err: err}
		}(i, p)
	}
	wg.Wait()

	var out []types.Venue
	var errs []error
	var locErr *LocationError
	ok := false
	for i, r := range results {
		if r.err != nil {
			m.log.Warn("search provider failed", zap.String("provider", m.providers[i].Name()), zap.Error(r.err))
			errs = append(errs, r.err)
			if locErr == nil {
				errors.As(r.err, &locErr)
			}
			continue
		}
		ok = true
		out = append(out, r.venues...)
	}
	if ok || len(m.providers) == 0 {
		return out, nil
	}
	if locErr != nil {
		return nil, locErr
	}
	joined := errors.Join(errs...)
	if errors.Is(joined, ErrTimeout) && !errors.Is(joined, ErrProviderFailure) {
		return nil, fmt.Errorf("%w: all providers timed out", ErrTimeout)
	}
	return nil, fmt.Errorf("%w: %v", ErrProviderFailure, joined)
}
