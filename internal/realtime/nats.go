package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type natsNotifier struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSNotifier connects to url and publishes each event on
// <prefix>.specs.<featureSpecID>.changes.
func NewNATSNotifier(url, prefix string, logger *slog.Logger) (Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("specboard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info("realtime notifier initialized", "driver", "nats", "url", url)
	return &natsNotifier{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the NATS subject events of a feature spec are published on.
func Subject(prefix, featureSpecID string) string {
	return fmt.Sprintf("%s.specs.%s.changes", prefix, featureSpecID)
}

func (n *natsNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := n.conn.Publish(Subject(n.prefix, event.FeatureSpecID), data); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (n *natsNotifier) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
