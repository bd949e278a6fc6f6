package mind

import (
	"context"

	"github.com/keshon/stream-companion/pkg/util"
)

// Publisher receives the state snapshot after every visible change.
// Failures are logged by the caller and never retried.
type Publisher interface {
	Publish(ctx context.Context, s Snapshot) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, s Snapshot) error

func (f PublisherFunc) Publish(ctx context.Context, s Snapshot) error { return f(ctx, s) }

// Publishers fans a snapshot out to several sinks in parallel. One failing
// sink does not stop the others.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, s Snapshot) error {
	return util.Parallel(ctx, ps, len(ps), func(ctx context.Context, p Publisher) error {
		return p.Publish(ctx, s)
	})
}
