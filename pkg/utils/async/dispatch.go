package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

// Group runs fire-and-forget handlers and lets the owner wait for the in-flight ones,
// e.g. on shutdown or at the end of a test.
type Group struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a background context that keeps
// the logger of ctx. Errors and panics are logged and never propagated.
func (g *Group) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger.With("async", name))
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errutil.Handle(bgCtx, goerr.New("panic in async handler", goerr.V("panic", r), goerr.V("handler", name)), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until every dispatched handler has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
