package crawl

import (
	"log/slog"

	"github.com/aluiziolira/leadscout/models"
)

// Observer receives the live event stream of a run. Complete and Error are
// terminal and exactly one of them is delivered per run.
type Observer interface {
	Log(message string)
	Result(record models.ListingRecord)
	Progress(p models.Progress)
	Complete(sinkID string)
	Error(message string)
}

// Observers fans every event out to each member in order.
type Observers []Observer

func (o Observers) Log(message string) {
	for _, obs := range o {
		obs.Log(message)
	}
}

func (o Observers) Result(record models.ListingRecord) {
	for _, obs := range o {
		obs.Result(record)
	}
}

func (o Observers) Progress(p models.Progress) {
	for _, obs := range o {
		obs.Progress(p)
	}
}

func (o Observers) Complete(sinkID string) {
	for _, obs := range o {
		obs.Complete(sinkID)
	}
}

func (o Observers) Error(message string) {
	for _, obs := range o {
		obs.Error(message)
	}
}

// LogObserver writes events to a structured logger. Used by the CLI, which has
// no live client.
type LogObserver struct {
	Logger *slog.Logger
}

func (l LogObserver) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l LogObserver) Log(message string) {
	l.logger().Info(message)
}

func (l LogObserver) Result(record models.ListingRecord) {
	l.logger().Debug("record emitted",
		slog.String("name", record.Name),
		slog.String("status", record.Status.String()),
		slog.String("website", record.Website),
		slog.String("email", record.Email),
	)
}

func (l LogObserver) Progress(p models.Progress) {
	l.logger().Info("progress", slog.Int("qualifying", p.Qualifying), slog.Int("target", p.Target))
}

func (l LogObserver) Complete(sinkID string) {
	l.logger().Info("run complete", slog.String("sink", sinkID))
}

func (l LogObserver) Error(message string) {
	l.logger().Error("run failed", slog.String("error", message))
}
