package workspace

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/solvepkg/wspkg/internal/constext"
	"github.com/solvepkg/wspkg/internal/resolver"
)

// Ctx is the supporting context threaded through an orchestrator
// invocation, mirroring dep.Ctx's role as the small struct cmd/dep's main
// wires up once and passes to every command.
type Ctx struct {
	RootDir string
	Config  Config
	Loggers *Loggers

	activeResolver activeResolverSlot

	cancelMu  sync.Mutex
	cancelCtx context.Context
	cancelFn  context.CancelFunc
}

// activeResolverSlot holds an optional "currently active resolver" handle
// external cancellation signals can reach into (§5 "Active-resolver
// slot"). It is set before solve and cleared after; access is
// single-threaded by construction (only the driver task touches it), so a
// plain mutex-guarded field is enough — no atomic.Value needed.
type activeResolverSlot struct {
	mu     sync.Mutex
	active resolver.Solver
}

func (c *Ctx) setActiveResolver(s resolver.Solver) {
	if c == nil {
		return
	}
	c.activeResolver.mu.Lock()
	c.activeResolver.active = s
	c.activeResolver.mu.Unlock()
}

func (c *Ctx) clearActiveResolver() {
	if c == nil {
		return
	}
	c.activeResolver.mu.Lock()
	c.activeResolver.active = nil
	c.activeResolver.mu.Unlock()
}

// ActiveResolver returns the resolver currently running a solve, or nil if
// none is in flight. Exposed so an external cancellation signal (e.g. a
// CLI's Ctrl-C handler) can locate it.
func (c *Ctx) ActiveResolver() resolver.Solver {
	if c == nil {
		return nil
	}
	c.activeResolver.mu.Lock()
	defer c.activeResolver.mu.Unlock()
	return c.activeResolver.active
}

// workspaceCancelContext lazily creates the workspace-wide cancellation
// signal every resolve cycle's scope merges with (§5), so the first
// Update/Resolve/ResolveFromLock call and the first Cancel call agree on
// the same underlying context regardless of which runs first.
func (c *Ctx) workspaceCancelContext() context.Context {
	if c == nil {
		return context.Background()
	}
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancelCtx == nil {
		c.cancelCtx, c.cancelFn = context.WithCancel(context.Background())
	}
	return c.cancelCtx
}

// Cancel aborts any resolve cycle currently in flight against this Ctx,
// and any future one, by tripping the workspace-wide half of every cycle's
// merged cancellation scope. Safe to call before any cycle has started.
func (c *Ctx) Cancel() {
	if c == nil {
		return
	}
	c.workspaceCancelContext()
	c.cancelMu.Lock()
	cancel := c.cancelFn
	c.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// NewScope merges parent — the per-cycle context a caller supplies, or
// context.Background() if none — with this Ctx's workspace-wide cancel
// signal via constext.Cons, satisfying §5's "each orchestrator entry point
// is cancellable at any suspension point." The returned context.Context
// also satisfies container.Scope, so it threads directly through every
// GetContainer call in the cycle. The caller must defer the returned
// cancel func to release the watcher goroutine constext.Cons starts.
func (c *Ctx) NewScope(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return constext.Cons(parent, c.workspaceCancelContext())
}

// UseDefaultSignalHandling installs a SIGINT handler that cancels this Ctx,
// mirroring gps.SourceMgr.UseDefaultSignalHandling's "typical os.Interrupt
// signal handling" convenience (§5) — a CLI composition root calls this
// once so Ctrl-C aborts whatever resolve cycle is currently using the
// active-resolver slot instead of being ignored until it exits on its own.
func (c *Ctx) UseDefaultSignalHandling() {
	if c == nil {
		return
	}
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)
	go func() {
		<-sigch
		signal.Stop(sigch)
		c.Cancel()
	}()
}
