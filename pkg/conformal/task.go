package conformal

import (
	"context"

	"github.com/gagern/confoo/pkg/errors"
)

// Task is a transform running in its own goroutine.
type Task[V comparable] struct {
	done   chan struct{}
	result *ResultMesh[V]
	err    error
}

// Start runs [Conformal.Transform] in a new goroutine.
func (c *Conformal[V]) Start(ctx context.Context) *Task[V] {
	t := &Task[V]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = c.Transform(ctx)
	}()
	return t
}

// Done is closed once the transform has finished.
func (t *Task[V]) Done() <-chan struct{} { return t.done }

// Wait blocks until the transform has finished and returns its outcome.
func (t *Task[V]) Wait() (*ResultMesh[V], error) {
	<-t.done
	return t.result, t.err
}

// Call runs the transform and keeps a failure for [Conformal.Err] instead
// of returning it. The error must be collected before Call is used again;
// calling with an uncollected error fails with MISUSE.
func (c *Conformal[V]) Call(ctx context.Context) *ResultMesh[V] {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending != nil {
		c.setPending(errors.Wrap(errors.ErrCodeMisuse, pending, "previous error was not collected"))
		return nil
	}
	res, err := c.Transform(ctx)
	if err != nil {
		c.setPending(err)
		return nil
	}
	return res
}

// Err returns and clears the error recorded by the last [Conformal.Call].
func (c *Conformal[V]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.pending
	c.pending = nil
	return err
}

func (c *Conformal[V]) setPending(err error) {
	c.mu.Lock()
	c.pending = err
	c.mu.Unlock()
}
