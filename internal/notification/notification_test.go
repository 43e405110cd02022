package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/agentcash/internal/logging"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSNotifierPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	n := NewNATSNotifier(pub, "test")

	msg := Message{Kind: KindMoneyReceived, Destination: "acc-1", Body: "You received 10.00", Reference: "rec-1"}
	require.NoError(t, n.Send(context.Background(), msg))

	require.Equal(t, []string{"test.money_received"}, pub.subjects)
	var got Message
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, msg, got)
}

func TestNATSNotifierWrapsPublishError(t *testing.T) {
	boom := errors.New("no responders")
	n := NewNATSNotifier(&capturePublisher{err: boom}, "")
	err := n.Send(context.Background(), Message{Kind: KindRequestCreated})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "agentcash.notifications.request_created", n.Subject(KindRequestCreated))
}

func TestMultiDeliversToAll(t *testing.T) {
	a, b := &capturePublisher{}, &capturePublisher{}
	m := Multi{NewNATSNotifier(a, "a"), NewLoggerNotifier(logging.Discard()), NewNATSNotifier(b, "b")}
	require.NoError(t, m.Send(context.Background(), Message{Kind: KindRequestApproved}))
	assert.Len(t, a.subjects, 1)
	assert.Len(t, b.subjects, 1)
}
