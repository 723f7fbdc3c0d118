// README: Search adapter contract, errors and request parameters derived from slots.
package search

import (
	"context"
	"errors"
	"fmt"

	"dinecall/internal/modules/slots"
	"dinecall/internal/types"
)

var (
	ErrProviderFailure = errors.New("search provider failure")
	ErrTimeout         = errors.New("search timed out")
)

// LocationError reports a location the provider could not resolve. The
// controller turns it into a targeted reprompt for the location slot.
type LocationError struct {
	Location string
	Err      error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("cannot resolve location %q: %v", e.Location, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }

// Request carries the completed slots. Fresh skips any cached provider results.
type Request struct {
	Slots slots.Set
	Fresh bool
}

// Searcher turns completed slots into venue candidates annotated with travel
// durations. Candidates the provider cannot route stay in the list with
// TravelKnown=false.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]types.Venue, error)
	Name() string
}

// classify maps transport errors onto the search taxonomy.
func classify(err error) error {
	var locErr *LocationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &locErr), errors.Is(err, ErrTimeout), errors.Is(err, ErrProviderFailure):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
}
