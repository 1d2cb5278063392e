package notify

import (
	"context"
	"log/slog"
	"time"

	"certwatch/internal/domain"
)

// Sender delivers one notification event to one channel.
// Params: context and abstract event payload.
// Returns: transport error when the send fails.
type Sender interface {
	Channel() string
	Send(ctx context.Context, event domain.Event) error
}

// Dispatcher fans one event out to a resolved set of channel senders.
// Params: per-send timeout and logger for isolated failures.
// Returns: fire-and-log delivery behavior.
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates the notification dispatcher.
// Params: per-channel send timeout and logger.
// Returns: initialized dispatcher.
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{timeout: timeout, logger: logger}
}

// Dispatch sends the event to each sender, isolating per-channel failures.
// Params: context, resolved sender set, and event payload.
// Returns: nothing; a failed channel is logged and the rest still receive the event.
func (d *Dispatcher) Dispatch(ctx context.Context, senders []Sender, event domain.Event) {
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sender.Send(sendCtx, event)
		cancel()
		if err != nil {
			d.logger.Error("notification send failed",
				"channel", sender.Channel(),
				"severity", string(event.Severity),
				"error", err.Error())
		}
	}
}
