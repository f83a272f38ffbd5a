package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/parser"
	"github.com/aluiziolira/leadscout/scraper"
)

// ClassifierOptions configures a Classifier.
type ClassifierOptions struct {
	Platforms *parser.DomainSet
	Filter    parser.EmailFilter
	// AcceptEmail, when set, must approve an address before it is kept.
	AcceptEmail func(ctx context.Context, email string) bool
	// CacheSize bounds the per-run lookup caches; zero disables caching.
	CacheSize int
	Metrics   *scraper.Metrics
	// Log receives the human-readable decision trail.
	Log func(message string)
	// Logger receives lookup failures; nil means slog.Default().
	Logger *slog.Logger
}

// Classifier decides the status of each listing. A Classifier belongs to one
// run; its caches are never shared between runs.
type Classifier struct {
	verifier Verifier
	fetcher  PageFetcher
	opts     ClassifierOptions

	emails   *lru.Cache[string, string]
	verdicts *lru.Cache[string, bool]
}

// NewClassifier builds a classifier backed by the given verifier and fetcher.
func NewClassifier(verifier Verifier, fetcher PageFetcher, opts ClassifierOptions) (*Classifier, error) {
	if opts.Platforms == nil {
		opts.Platforms = parser.NewDomainSet(parser.DefaultPlatformDomains)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Filter.Extensions)+len(opts.Filter.Vendors)+len(opts.Filter.Placeholders) == 0 {
		opts.Filter = parser.DefaultEmailFilter()
	}
	c := &Classifier{
		verifier: verifier,
		fetcher:  fetcher,
		opts:     opts,
	}
	if opts.CacheSize > 0 {
		var err error
		if c.emails, err = lru.New[string, string](opts.CacheSize); err != nil {
			return nil, fmt.Errorf("create email cache: %w", err)
		}
		if c.verdicts, err = lru.New[string, bool](opts.CacheSize); err != nil {
			return nil, fmt.Errorf("create verification cache: %w", err)
		}
	}
	return c, nil
}

// Classify turns facts into a record. Verification and email failures map to
// their defaults; the only error returned is a fatal automation error.
func (c *Classifier) Classify(ctx context.Context, facts models.ListingFacts) (models.ListingRecord, error) {
	rec := models.ListingRecord{
		SourceURL: facts.SourceURL,
		Name:      facts.Name,
		Address:   facts.Address,
		Phone:     facts.Phone,
	}
	if facts.HasWebsite() {
		rec.Website = strings.TrimSpace(facts.PrimaryWebsite)
	}

	website := rec.Website
	platformOnly := website != "" && c.opts.Platforms.Matches(website)

	if website != "" && !platformOnly {
		rec.Status = models.StatusOfficialWebsite
		email, err := c.discoverEmail(ctx, website)
		if err != nil {
			return models.ListingRecord{}, err
		}
		rec.Email = email
		c.logf("[SKIPPED] %s - Has official website: %s", facts.Name, website)
		c.opts.Metrics.IncListing(rec.Status.Label())
		return rec, nil
	}

	if platformOnly {
		c.logf("[CHECK] %s - Only has platform link: %s. Verifying with search...", facts.Name, website)
	} else {
		c.logf("[CHECK] %s - No website listed. Verifying with search...", facts.Name)
	}

	found, err := c.verify(ctx, facts.Name, facts.Address)
	if err != nil {
		return models.ListingRecord{}, err
	}

	switch {
	case found:
		rec.Status = models.StatusFoundViaSearch
		c.logf("[SKIPPED] %s - Found a website via search.", facts.Name)
	case platformOnly:
		rec.Status = models.StatusPlatformOnly
		c.logf("[KEPT] %s - Only has a platform link (%s).", facts.Name, website)
	default:
		rec.Status = models.StatusNoWebsite
		c.logf("[KEPT] %s - No website found.", facts.Name)
	}
	c.opts.Metrics.IncListing(rec.Status.Label())
	return rec, nil
}

func (c *Classifier) verify(ctx context.Context, name, address string) (bool, error) {
	key := strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(address))
	if c.verdicts != nil {
		if found, ok := c.verdicts.Get(key); ok {
			return found, nil
		}
	}

	found, err := c.verifier.VerifyIndependentWebsite(ctx, name, address)
	if err != nil {
		if scraper.IsFatal(err) {
			return false, err
		}
		c.opts.Metrics.IncError(err)
		c.opts.Logger.Warn("website verification failed", slog.String("name", name), slog.Any("error", err))
		return false, nil
	}
	if c.verdicts != nil {
		c.verdicts.Add(key, found)
	}
	return found, nil
}

func (c *Classifier) discoverEmail(ctx context.Context, website string) (string, error) {
	if c.emails != nil {
		if email, ok := c.emails.Get(website); ok {
			c.opts.Metrics.IncEmailLookup("cached")
			return email, nil
		}
	}

	text, err := c.fetcher.FetchPageText(ctx, website)
	if err != nil {
		if scraper.IsFatal(err) {
			return "", err
		}
		c.opts.Metrics.IncError(err)
		c.opts.Metrics.IncEmailLookup("error")
		c.opts.Logger.Debug("email fetch failed", slog.String("url", website), slog.Any("error", err))
		return "", nil
	}

	email := ""
	for _, candidate := range parser.ExtractEmails(text, c.opts.Filter) {
		if c.opts.AcceptEmail == nil || c.opts.AcceptEmail(ctx, candidate) {
			email = candidate
			break
		}
	}
	if email == "" {
		c.opts.Metrics.IncEmailLookup("none")
	} else {
		c.opts.Metrics.IncEmailLookup("found")
	}
	if c.emails != nil {
		c.emails.Add(website, email)
	}
	return email, nil
}

func (c *Classifier) logf(format string, args ...any) {
	if c.opts.Log != nil {
		c.opts.Log(fmt.Sprintf(format, args...))
	}
}
