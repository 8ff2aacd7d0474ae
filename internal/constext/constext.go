// Package constext merges two parent contexts into one that is done when
// either parent is done, for the orchestrator's "active-resolver slot"
// (§5): a resolve cycle is cancellable both by its caller's context and by
// an external cancellation signal raised against the workspace itself.
// Reimplements the purpose of github.com/sdboyer/constext without
// depending on it directly, since that package's own retrieved snapshot is
// incomplete in the reference corpus.
package constext

import (
	"context"
	"errors"
)

// ErrCanceledByPeer is returned as Err() when the *other* parent is the one
// that triggered cancellation, letting callers distinguish which side
// cancelled for diagnostics.
var ErrCanceledByPeer = errors.New("constext: cancelled by peer context")

type constext struct {
	context.Context // primary parent; Value() delegates here

	peer context.Context
	done chan struct{}
	err  error // set by watch before done is closed
}

// Cons returns a context that is Done when either a or b is Done, and whose
// Err reports whichever side triggered cancellation first.
func Cons(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx := &constext{Context: a, peer: b, done: make(chan struct{})}

	stop := make(chan struct{})
	go ctx.watch(a, b, stop)

	cancel := func() { close(stop) }
	return ctx, cancel
}

func (c *constext) watch(a, b context.Context, stop <-chan struct{}) {
	select {
	case <-a.Done():
		c.err = a.Err()
	case <-b.Done():
		c.err = ErrCanceledByPeer
	case <-stop:
		return
	}
	close(c.done)
}

func (c *constext) Done() <-chan struct{} { return c.done }

func (c *constext) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
