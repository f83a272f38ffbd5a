package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aluiziolira/leadscout/crawl"
)

// Publisher is the subset of *nats.Conn used to mirror events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("leadscout"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// NATSObserver publishes each event of a run to <prefix>.<runID>.<type>.
// Publish failures are logged and otherwise ignored.
func NATSObserver(pub Publisher, prefix, runID string) crawl.Observer {
	return eventSink(func(kind string, data any) {
		payload, err := encodeEvent(kind, runID, data)
		if err != nil {
			slog.Error("encode event failed", slog.String("type", kind), slog.Any("error", err))
			return
		}
		subject := prefix + "." + runID + "." + kind
		if err := pub.Publish(subject, payload); err != nil {
			slog.Warn("nats publish failed", slog.String("subject", subject), slog.Any("error", err))
		}
	})
}
