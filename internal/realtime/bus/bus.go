package bus

import (
	"context"

	"github.com/novamark/agencydesk-backend/internal/realtime"
)

// Bus fans record change events out to every portal instance. The store
// publishes after each local write and feeds forwarded events back into its
// own dispatch, so subscriptions behave the same with one instance or many.
type Bus interface {
	Publish(ctx context.Context, ev realtime.ChangeEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.ChangeEvent)) error
	Close() error
}
