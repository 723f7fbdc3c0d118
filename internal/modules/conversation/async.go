package conversation

import "context"

type outcome[T any] struct {
	val T
	err error
}

// await runs fn on its own goroutine and returns its result, or ctx.Err() when
// ctx ends first. An abandoned call finishes in the background and its result
// is dropped; the buffered channel keeps that goroutine from leaking.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome[T]{val: v, err: err}
	}()
	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
