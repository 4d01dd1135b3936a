package session

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Coordinator shares one in-flight refresh between all concurrent callers.
// The first caller starts it, later callers wait on the same result.
type Coordinator struct {
	refresher Refresher
	group     singleflight.Group
	started   atomic.Int64
}

// NewCoordinator wraps r so that overlapping Refresh calls hit the backend once.
func NewCoordinator(r Refresher) *Coordinator {
	return &Coordinator{refresher: r}
}

// Refresh joins the in-flight refresh or starts a new one. A caller whose ctx
// is cancelled stops waiting without cancelling the refresh for the others.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		c.started.Add(1)
		return nil, c.refresher.Refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Started returns how many refreshes actually reached the wrapped Refresher.
func (c *Coordinator) Started() int64 {
	return c.started.Load()
}
