// Package notify relays confidence level changes to the sync layer over NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix is followed by the memory id.
const SubjectPrefix = "veritas.scores"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSNotifier struct {
	pub    Publisher
	logger *zap.Logger
}

func NewNATSNotifier(pub Publisher, logger *zap.Logger) *NATSNotifier {
	return &NATSNotifier{pub: pub, logger: logger}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("veritas"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

func Subject(change domain.ScoreChange) string {
	return SubjectPrefix + "." + change.MemoryID.String()
}

func (n *NATSNotifier) PublishScoreChange(ctx context.Context, change domain.ScoreChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal score change: %w", err)
	}
	if err := n.pub.Publish(Subject(change), data); err != nil {
		return fmt.Errorf("publish score change: %w", err)
	}
	n.logger.Debug("published score change",
		zap.String("memory_id", change.MemoryID.String()),
		zap.String("new_level", string(change.NewLevel)),
	)
	return nil
}

// NopNotifier is used when NATS is not configured.
type NopNotifier struct{}

func (NopNotifier) PublishScoreChange(ctx context.Context, change domain.ScoreChange) error {
	return nil
}
