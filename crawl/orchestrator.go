package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/parser"
	"github.com/aluiziolira/leadscout/pipeline"
	"github.com/aluiziolira/leadscout/scraper"
)

// SinkOpener opens the writer a run appends its records to.
type SinkOpener interface {
	Open(runID, sinkID string) (pipeline.OutputWriter, error)
}

// Options configures an Orchestrator.
type Options struct {
	Target int
	// Classifier is copied for each run; Log, Logger and Metrics are filled in
	// per run.
	Classifier ClassifierOptions
	Metrics    *scraper.Metrics
	Logger     *slog.Logger
}

// Orchestrator runs whole crawls: it owns the automation session and the sink
// for the duration of a run and delivers exactly one terminal event.
type Orchestrator struct {
	open  SessionFactory
	sinks SinkOpener
	opts  Options
}

// NewOrchestrator builds an orchestrator. It holds no per-run state, so one
// instance can serve concurrent runs.
func NewOrchestrator(open SessionFactory, sinks SinkOpener, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{open: open, sinks: sinks, opts: opts}
}

// Run executes one crawl for query and reports to observer. The returned
// result is always non-nil; the error mirrors the terminal Error event.
func (o *Orchestrator) Run(ctx context.Context, query string, observer Observer) (*models.CrawlResult, error) {
	return o.RunWithID(ctx, uuid.NewString(), query, observer)
}

// RunWithID is Run with a caller-chosen run id.
func (o *Orchestrator) RunWithID(ctx context.Context, runID, query string, observer Observer) (*models.CrawlResult, error) {
	topic, seed := parser.Decompose(query)
	sinkID := parser.SinkID(query, "csv")
	logger := o.opts.Logger.With(slog.String("run_id", runID), slog.String("query", query))

	result := &models.CrawlResult{
		RunID:     runID,
		Query:     query,
		SinkID:    sinkID,
		Target:    o.opts.Target,
		StartTime: time.Now(),
	}

	observer.Log(fmt.Sprintf("Starting search for %q. Target: %d", query, o.opts.Target))
	observer.Log("Saving results to: " + sinkID)

	o.opts.Metrics.RunStarted()
	outcome, err := o.execute(ctx, runID, topic, seed, sinkID, observer, logger, result)
	result.Outcome = outcome
	result.EndTime = time.Now()
	o.opts.Metrics.RunFinished(string(outcome))

	if err != nil {
		logger.Error("run failed", slog.Any("error", err), slog.String("error_type", scraper.ErrorTypeLabel(err)))
		observer.Error(err.Error())
		return result, err
	}
	logger.Info("run finished",
		slog.String("outcome", string(outcome)),
		slog.Int("qualifying", result.Qualifying),
		slog.Int("records", result.RecordCount),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	)
	observer.Complete(sinkID)
	return result, nil
}

// execute performs every step that must finish, including cleanup, before
// the terminal event is sent.
func (o *Orchestrator) execute(ctx context.Context, runID, topic string, seed models.PlaceName, sinkID string, observer Observer, logger *slog.Logger, result *models.CrawlResult) (outcome models.Outcome, err error) {
	writer, err := o.sinks.Open(runID, sinkID)
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("open sink: %w", err)
	}

	session, err := o.open(ctx)
	if err != nil {
		writer.Close()
		return models.OutcomeFailed, fmt.Errorf("open automation session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("session close failed", slog.Any("error", cerr))
		}
	}()

	emitter := pipeline.NewEmitter(writer, observer)
	emitter.Start()

	clsOpts := o.opts.Classifier
	clsOpts.Metrics = o.opts.Metrics
	clsOpts.Logger = logger
	clsOpts.Log = func(msg string) {
		logger.Debug(msg)
		observer.Log(msg)
	}
	classifier, err := NewClassifier(session, session, clsOpts)
	if err != nil {
		emitter.Close()
		return models.OutcomeFailed, err
	}

	state := NewState(seed, o.opts.Target)
	controller := NewController(session, classifier, emitter, o.opts.Metrics, observer.Log, logger)
	outcome, runErr := controller.Run(ctx, topic, state)
	state.fill(result)

	closeErr := emitter.Close()
	stats := emitter.Stats()
	logger.Debug("sink flushed", slog.Int64("emitted", stats.Emitted), slog.Int64("written", stats.Written))
	if runErr != nil {
		return models.OutcomeFailed, errors.Join(runErr, closeErr)
	}
	if closeErr != nil {
		return models.OutcomeFailed, fmt.Errorf("flush sink: %w", closeErr)
	}
	return outcome, nil
}
