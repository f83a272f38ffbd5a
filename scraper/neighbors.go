package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/leadscout/config"
	"github.com/aluiziolira/leadscout/models"
)

const neighborLinkSelector = `a[href*="trippy.com/destination/"]`

var (
	commaSeparator  = regexp.MustCompile(`,\s*`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	cityLikeLinkTxt = regexp.MustCompile(`^[A-Z][a-zA-Z\s]+$`)
)

// NeighborFinder looks up places near a given place on a city-distance directory.
type NeighborFinder struct {
	collector *colly.Collector
	baseURL   string
	metrics   *Metrics
}

// NewNeighborFinder builds a finder configured from cfg.
func NewNeighborFinder(cfg *config.Config, metrics *Metrics) *NeighborFinder {
	return &NeighborFinder{
		collector: newCollector(cfg.Automation.UserAgent, cfg.Neighbors.Timeout),
		baseURL:   strings.TrimSuffix(cfg.Neighbors.BaseURL, "/"),
		metrics:   metrics,
	}
}

// DiscoverNeighbors returns nearby place names, excluding place itself.
// The directory is best-effort; an empty result is not an error.
func (n *NeighborFinder) DiscoverNeighbors(ctx context.Context, place models.PlaceName) ([]models.PlaceName, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrNeighborDiscovery{Place: string(place), Err: err}
	}
	start := time.Now()
	defer func() { n.metrics.ObserveOp("discover_neighbors", time.Since(start)) }()

	c := n.collector.Clone()

	var primary, fallback []string
	var statusCode int
	c.OnHTML(neighborLinkSelector, func(e *colly.HTMLElement) {
		primary = append(primary, strings.TrimSpace(e.Text))
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find("a").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			text := strings.TrimSpace(link.Text())
			if strings.Contains(href, "distance") && cityLikeLinkTxt.MatchString(text) {
				fallback = append(fallback, text)
			}
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := c.Visit(n.baseURL + "/" + neighborSlug(place)); err != nil {
		return nil, ErrNeighborDiscovery{Place: string(place), Err: classifyError(err, statusCode)}
	}

	names := primary
	if len(names) == 0 {
		names = fallback
	}
	return uniquePlaces(names, place), nil
}

// neighborSlug formats "Frisco, TX" as "Frisco-TX".
func neighborSlug(place models.PlaceName) string {
	slug := commaSeparator.ReplaceAllString(string(place), "-")
	slug = whitespaceRun.ReplaceAllString(slug, "-")
	return url.PathEscape(slug)
}

func uniquePlaces(names []string, origin models.PlaceName) []models.PlaceName {
	seen := map[string]struct{}{origin.Key(): {}}
	out := make([]models.PlaceName, 0, len(names))
	for _, name := range names {
		place := models.PlaceName(name)
		key := place.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, place)
	}
	return out
}
