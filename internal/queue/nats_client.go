package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"cv-analyzer/internal/shared/telemetry"
)

const (
	DefaultNATSSubject = "cv_analyzer.jobs"
	natsWorkerGroup    = "cv-analyzer-workers"
)

// NATSClient publishes job messages to a NATS subject and consumes them
// through a queue group so each message reaches one worker.
type NATSClient struct {
	conn    *nats.Conn
	subject string
}

// NewNATSClient connects to url.
func NewNATSClient(url, subject string) (*NATSClient, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultNATSSubject
	}
	conn, err := nats.Connect(url, nats.Name("cv-analyzer"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSClient{conn: conn, subject: subject}, nil
}

func (n *NATSClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode nats message: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Subscribe delivers raw message bodies to handle until the subscription
// is drained. Decoding is left to the caller.
func (n *NATSClient) Subscribe(handle func(body []byte)) (*nats.Subscription, error) {
	sub, err := n.conn.QueueSubscribe(n.subject, natsWorkerGroup, func(m *nats.Msg) {
		handle(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", n.subject, err)
	}
	telemetry.Info("queue.nats.subscribed", map[string]any{"subject": n.subject, "group": natsWorkerGroup})
	return sub, nil
}

// Close drains pending messages and closes the connection.
func (n *NATSClient) Close() error {
	return n.conn.Drain()
}

var _ Client = (*NATSClient)(nil)
