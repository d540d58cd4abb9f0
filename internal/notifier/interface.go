package notifier

import (
	"context"

	"github.com/newthinker/quorum/internal/events"
)

// Notifier delivers hub events to an external channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers a single event
	Notify(ctx context.Context, e events.Event) error
}
