package scraper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/leadscout/config"
	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/parser"
)

const maxScrollRounds = 60

// Browser is one automation session: a dedicated Chrome process plus the
// static fetchers used for neighbour lookup and website text.
type Browser struct {
	cfg           *config.Config
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	limiter       *rate.Limiter
	ignore        *parser.DomainSet
	pages         *PageFetcher
	neighbors     *NeighborFinder
	metrics       *Metrics
}

type placePayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// NewBrowser launches Chrome and returns a ready session. The session lives
// until Close is called or ctx is cancelled.
func NewBrowser(ctx context.Context, cfg *config.Config, metrics *Metrics) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Automation.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.Automation.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
		}),
	)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, ErrFatalAutomation{Err: fmt.Errorf("launch browser: %w", err)}
	}

	limit := rate.Inf
	if cfg.Automation.MinInterval > 0 {
		limit = rate.Every(cfg.Automation.MinInterval)
	}

	return &Browser{
		cfg:           cfg,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		limiter:       rate.NewLimiter(limit, 1),
		ignore:        parser.NewDomainSet(cfg.Domains.SearchIgnore),
		pages:         NewPageFetcher(cfg, metrics),
		neighbors:     NewNeighborFinder(cfg, metrics),
		metrics:       metrics,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() error {
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

// DiscoverListings searches the listings provider for q and yields the facts of
// each place in the results feed. A missing feed yields a single
// ErrPlaceDiscoveryTimeout; an unreadable place yields ErrListingParse.
func (b *Browser) DiscoverListings(ctx context.Context, q models.CrawlQuery) iter.Seq2[models.ListingFacts, error] {
	return func(yield func(models.ListingFacts, error) bool) {
		tabCtx, cancelTab := b.newTab(ctx)
		defer cancelTab()

		links, err := b.searchPlaces(tabCtx, q)
		if err != nil {
			yield(models.ListingFacts{}, err)
			return
		}
		slog.Debug("listings discovered", slog.String("query", q.String()), slog.Int("count", len(links)))

		for _, link := range links {
			facts, err := b.readPlace(tabCtx, link)
			if !yield(facts, err) {
				return
			}
			if IsFatal(err) {
				return
			}
		}
	}
}

func (b *Browser) searchPlaces(tabCtx context.Context, q models.CrawlQuery) ([]string, error) {
	start := time.Now()
	defer func() { b.metrics.ObserveOp("search_places", time.Since(start)) }()

	if err := b.limiter.Wait(tabCtx); err != nil {
		return nil, b.fatalOr(err, err)
	}
	if err := chromedp.Run(tabCtx, chromedp.Navigate(b.cfg.Automation.MapsURL)); err != nil {
		return nil, b.fatalOr(err, ErrPlaceDiscoveryTimeout{Query: q.String(), Err: err})
	}

	consentCtx, cancelConsent := context.WithTimeout(tabCtx, b.cfg.Automation.ConsentTimeout)
	_ = chromedp.Run(consentCtx, chromedp.Click(consentButtonSelector, chromedp.ByQuery))
	cancelConsent()

	if err := chromedp.Run(tabCtx, chromedp.SendKeys(searchBoxSelector, q.String()+kb.Enter, chromedp.ByQuery)); err != nil {
		return nil, b.fatalOr(err, ErrPlaceDiscoveryTimeout{Query: q.String(), Err: err})
	}

	waitCtx, cancelWait := context.WithTimeout(tabCtx, b.cfg.Automation.ResultsTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(resultsFeedSelector, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		return nil, b.fatalOr(err, ErrPlaceDiscoveryTimeout{Query: q.String(), Err: err})
	}

	if err := b.scrollFeed(tabCtx); err != nil {
		return nil, b.fatalOr(err, ErrPlaceDiscoveryTimeout{Query: q.String(), Err: err})
	}

	var hrefs []string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(placeLinksJS, &hrefs)); err != nil {
		return nil, b.fatalOr(err, ErrPlaceDiscoveryTimeout{Query: q.String(), Err: err})
	}
	return uniqueLinks(hrefs), nil
}

// scrollFeed scrolls until the feed height is unchanged for ScrollStable rounds.
func (b *Browser) scrollFeed(tabCtx context.Context) error {
	var previous int64
	stable := 0
	for round := 0; round < maxScrollRounds; round++ {
		var height int64
		if err := chromedp.Run(tabCtx,
			chromedp.Evaluate(scrollFeedJS, &height),
			chromedp.Sleep(b.cfg.Automation.ScrollPause),
		); err != nil {
			return err
		}
		if height == previous {
			stable++
			if stable >= b.cfg.Automation.ScrollStable {
				return nil
			}
		} else {
			stable = 0
		}
		previous = height
	}
	return nil
}

func (b *Browser) readPlace(tabCtx context.Context, link string) (models.ListingFacts, error) {
	start := time.Now()
	defer func() { b.metrics.ObserveOp("read_place", time.Since(start)) }()

	placeCtx, cancel := context.WithTimeout(tabCtx, b.cfg.Automation.PlaceTimeout)
	defer cancel()

	var payload placePayload
	if err := chromedp.Run(placeCtx,
		chromedp.Navigate(link),
		chromedp.WaitVisible(placeTitleSelector, chromedp.ByQuery),
		chromedp.Evaluate(placeFactsJS, &payload),
	); err != nil {
		return models.ListingFacts{SourceURL: link}, b.fatalOr(err, ErrListingParse{URL: link, Err: err})
	}

	return parser.NormalizeFacts(models.ListingFacts{
		SourceURL:      link,
		Name:           payload.Name,
		Address:        payload.Address,
		Phone:          payload.Phone,
		PrimaryWebsite: payload.Website,
	}), nil
}

// VerifyIndependentWebsite searches for the business and reports whether an
// unaffiliated, non-directory site appears among the top results.
func (b *Browser) VerifyIndependentWebsite(ctx context.Context, name, address string) (bool, error) {
	start := time.Now()
	defer func() { b.metrics.ObserveOp("verify_website", time.Since(start)) }()

	tabCtx, cancelTab := b.newTab(ctx)
	defer cancelTab()

	if err := b.limiter.Wait(tabCtx); err != nil {
		return false, b.fatalOr(err, ErrVerification{Err: err})
	}

	verifyCtx, cancel := context.WithTimeout(tabCtx, b.cfg.Automation.VerifyTimeout)
	defer cancel()

	searchURL := b.cfg.Automation.SearchURL + "?q=" + url.QueryEscape(strings.TrimSpace(name+" "+address))
	var hrefs []string
	if err := chromedp.Run(verifyCtx,
		chromedp.Navigate(searchURL),
		chromedp.Evaluate(searchResultLinksJS, &hrefs),
	); err != nil {
		return false, b.fatalOr(err, ErrVerification{Err: err})
	}

	site, found := independentResult(hrefs, b.ignore)
	if found {
		slog.Debug("independent website found", slog.String("name", name), slog.String("url", site))
	}
	return found, nil
}

// DiscoverNeighbors delegates to the static neighbour directory.
func (b *Browser) DiscoverNeighbors(ctx context.Context, place models.PlaceName) ([]models.PlaceName, error) {
	if err := b.browserCtx.Err(); err != nil {
		return nil, ErrFatalAutomation{Err: err}
	}
	return b.neighbors.DiscoverNeighbors(ctx, place)
}

// FetchPageText downloads a website's page content.
func (b *Browser) FetchPageText(ctx context.Context, rawURL string) (string, error) {
	return b.pages.FetchPageText(ctx, rawURL)
}

// newTab opens a tab in the session that also closes when ctx is done.
func (b *Browser) newTab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelTab()
	}
}

// fatalOr returns a fatal error when the browser itself is gone, fallback otherwise.
func (b *Browser) fatalOr(err, fallback error) error {
	if b.browserCtx.Err() != nil {
		return ErrFatalAutomation{Err: err}
	}
	return fallback
}

// independentResult returns the first absolute result link that is neither a
// directory nor the search engine itself.
func independentResult(hrefs []string, ignore *parser.DomainSet) (string, bool) {
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if ignore.Matches(href) || strings.Contains(parser.Hostname(href), "google.") {
			continue
		}
		return href, true
	}
	return "", false
}

func uniqueLinks(hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if href == "" {
			continue
		}
		if _, ok := seen[href]; ok {
			continue
		}
		seen[href] = struct{}{}
		out = append(out, href)
	}
	return out
}
