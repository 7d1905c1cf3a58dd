package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
)

// TxRunner runs fn inside one storage transaction bound to ctx.
// Stores read the transaction from ctx, so every write in fn commits or rolls back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditAppender persists audit entries.
type AuditAppender interface {
	Save(ctx context.Context, event audit.Event) error
}

// notify reports a committed transition. Notifier failures are logged and
// swallowed; the transition they describe has already happened.
func notify(ctx context.Context, n dispatch.Notifier, kind string, payload dispatch.Payload) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, kind, payload); err != nil {
		slog.Warn("notify_failed", "kind", kind, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, failure.ErrNotFound)
}
