package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/parser"
	"github.com/aluiziolira/leadscout/scraper"
)

// RecordEmitter accepts classified records and progress snapshots.
type RecordEmitter interface {
	Emit(record models.ListingRecord) error
	ReportProgress(p models.Progress)
}

// Controller expands a crawl breadth-first from a seed place. Places are
// processed one at a time; there is no overlap between them.
type Controller struct {
	session    Session
	classifier *Classifier
	emitter    RecordEmitter
	metrics    *scraper.Metrics
	log        func(message string)
	logger     *slog.Logger
}

// NewController wires a controller for a single run. log receives the
// human-readable event stream and may be nil.
func NewController(session Session, classifier *Classifier, emitter RecordEmitter, metrics *scraper.Metrics, log func(string), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		session:    session,
		classifier: classifier,
		emitter:    emitter,
		metrics:    metrics,
		log:        log,
		logger:     logger,
	}
}

// Run crawls until state reaches its target or runs out of places. The
// returned error is non-nil only for fatal failures, including cancellation.
func (c *Controller) Run(ctx context.Context, topic string, state *State) (models.Outcome, error) {
	for !state.TargetReached() {
		if err := ctx.Err(); err != nil {
			return models.OutcomeFailed, scraper.ErrFatalAutomation{Err: err}
		}

		place, ok := state.Next()
		if !ok {
			c.logf("No more places to search.")
			return models.OutcomeExhausted, nil
		}

		q := models.CrawlQuery{Topic: topic, Place: place}
		c.logf("--- Processing: %s ---", q)
		if err := c.processPlace(ctx, q, state); err != nil {
			return models.OutcomeFailed, err
		}
		c.metrics.IncPlaces()

		progress := state.Progress()
		c.emitter.ReportProgress(progress)
		c.logf("Total verified \"no website\" results so far: %d", progress.Qualifying)

		if state.TargetReached() {
			break
		}

		c.logf("Need more results. Finding places near %s...", place)
		neighbors, err := c.session.DiscoverNeighbors(ctx, place)
		if err != nil {
			if scraper.IsFatal(err) {
				return models.OutcomeFailed, err
			}
			c.metrics.IncError(err)
			c.logger.Warn("neighbor discovery failed", slog.String("place", string(place)), slog.Any("error", err))
			neighbors = nil
		}
		added := state.Enqueue(neighbors)
		c.logger.Debug("neighbors queued",
			slog.String("place", string(place)),
			slog.Int("found", len(neighbors)),
			slog.Int("added", added),
			slog.Int("pending", state.Pending()),
		)
		if state.Pending() == 0 {
			c.logf("No more places to search.")
			return models.OutcomeExhausted, nil
		}
	}

	c.logf("Target of %d reached.", state.Progress().Target)
	return models.OutcomeTargetReached, nil
}

func (c *Controller) processPlace(ctx context.Context, q models.CrawlQuery, state *State) error {
	seen := 0
	for facts, err := range c.session.DiscoverListings(ctx, q) {
		if err != nil {
			if scraper.IsFatal(err) {
				return err
			}
			c.metrics.IncError(err)
			var timeout scraper.ErrPlaceDiscoveryTimeout
			if errors.As(err, &timeout) {
				c.logf("Could not find results for %s.", q)
				continue
			}
			state.Skip()
			c.logger.Warn("listing skipped", slog.String("query", q.String()), slog.Any("error", err))
			continue
		}

		if err := parser.ValidateFacts(facts); err != nil {
			perr := scraper.ErrListingParse{URL: facts.SourceURL, Err: err}
			c.metrics.IncError(perr)
			state.Skip()
			c.logger.Warn("listing skipped", slog.String("query", q.String()), slog.Any("error", perr))
			continue
		}
		seen++

		rec, err := c.classifier.Classify(ctx, facts)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return scraper.ErrFatalAutomation{Err: err}
		}
		if err := c.emitter.Emit(rec); err != nil {
			return fmt.Errorf("emit %q: %w", rec.SourceURL, err)
		}
		state.Record(rec)
	}
	c.logger.Debug("place processed", slog.String("query", q.String()), slog.Int("listings", seen))
	return nil
}

func (c *Controller) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Info(msg)
	if c.log != nil {
		c.log(msg)
	}
}
