package application

import (
	"context"
	"sync"
)

// Task is the handle of an operation running in background. It can be
// waited for or cancelled.
type Task[T any] struct {
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	result    T
	err       error
}

func runTask[T any](
	ctx context.Context, fn func(ctx context.Context) (T, error),
) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		result, err := fn(ctx)
		t.finish(result, err)
	}()
	return t
}

func failedTask[T any](err error) *Task[T] {
	t := &Task[T]{
		done:   make(chan struct{}),
		cancel: func() {},
	}
	var zero T
	t.finish(zero, err)
	return t
}

// Done is closed once the task has completed.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes, or the given context is done, and
// returns its result.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel stops the task at its next suspension point. Work already done is
// not undone.
func (t *Task[T]) Cancel() {
	t.cancel()
}

func (t *Task[T]) finish(result T, err error) {
	t.closeOnce.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}
