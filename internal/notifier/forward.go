package notifier

import (
	"context"

	"github.com/newthinker/quorum/internal/events"
	"go.uber.org/zap"
)

// Recorder counts deliveries.
type Recorder interface {
	RecordNotification(notifier, status string)
}

// Forward delivers events from ch to the registry until ctx is done or ch
// closes. The caller subscribes before anything publishes so no event is
// missed. Delivery failures are logged and never stop the loop.
func Forward(ctx context.Context, ch <-chan events.Event, reg *Registry, rec Recorder, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			deliver(ctx, e, reg, rec, logger)
		}
	}
}

func deliver(ctx context.Context, e events.Event, reg *Registry, rec Recorder, logger *zap.Logger) {
	for _, n := range reg.For(e.Kind) {
		status := "ok"
		if err := n.Notify(ctx, e); err != nil {
			status = "error"
			logger.Warn("notification failed",
				zap.String("notifier", n.Name()),
				zap.String("event", string(e.Kind)),
				zap.String("symbol", e.Symbol),
				zap.Error(err),
			)
		}
		if rec != nil {
			rec.RecordNotification(n.Name(), status)
		}
	}
}
