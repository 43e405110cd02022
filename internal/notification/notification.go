package notification

import (
	"context"
	"log/slog"
)

const (
	// KindMoneyReceived tells a receiver that a transfer settled.
	KindMoneyReceived = "money_received"
	// KindRequestCreated tells an agent a cash-in or cash-out request is waiting.
	KindRequestCreated = "request_created"
	// KindRequestApproved tells a requester their request settled.
	KindRequestApproved = "request_approved"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
	Reference   string `json:"reference,omitempty"`
}

// Notifier delivers notifications to downstream systems. Delivery is best
// effort and never affects a settled operation.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"reference", message.Reference,
		"body", message.Body,
	)
	return nil
}
