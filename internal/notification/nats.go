package notification

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each message as JSON on "<prefix>.<kind>".
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

// NewNATSNotifier builds a notifier over an established connection.
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "agentcash.notifications"
	}
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Subject returns the subject a message of the given kind is published on.
func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

// Send publishes message.
func (n *NATSNotifier) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.pub.Publish(n.Subject(message.Kind), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Multi fans a message out to several notifiers and returns the first error.
type Multi []Notifier

// Send delivers message to every notifier.
func (m Multi) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
