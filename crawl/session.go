// Package crawl drives a lead crawl: it expands a seed place breadth-first over
// its neighbours, classifies every listing found and emits the records.
package crawl

import (
	"context"
	"iter"

	"github.com/aluiziolira/leadscout/models"
)

// Verifier reports whether a business has an independent website reachable
// through a general web search.
type Verifier interface {
	VerifyIndependentWebsite(ctx context.Context, name, address string) (bool, error)
}

// PageFetcher returns the text of a web page.
type PageFetcher interface {
	FetchPageText(ctx context.Context, url string) (string, error)
}

// Session is one automation session. It is owned by a single run and must not
// be shared between runs.
type Session interface {
	Verifier
	PageFetcher

	// DiscoverListings yields the facts of each listing for q. Per-listing
	// failures are yielded as errors and iteration continues; a failure to
	// load the results at all yields one error.
	DiscoverListings(ctx context.Context, q models.CrawlQuery) iter.Seq2[models.ListingFacts, error]
	DiscoverNeighbors(ctx context.Context, place models.PlaceName) ([]models.PlaceName, error)
	Close() error
}

// SessionFactory opens a new automation session.
type SessionFactory func(ctx context.Context) (Session, error)
