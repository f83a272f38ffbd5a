package scraper

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/leadscout/config"
)

// newCollector builds the synchronous collector shared by the static fetchers.
func newCollector(userAgent string, timeout time.Duration) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	return collector
}

// PageFetcher downloads the raw text of business websites.
type PageFetcher struct {
	collector *colly.Collector
	retry     retryPolicy
	metrics   *Metrics
}

// NewPageFetcher builds a fetcher configured from cfg.
func NewPageFetcher(cfg *config.Config, metrics *Metrics) *PageFetcher {
	return &PageFetcher{
		collector: newCollector(cfg.Automation.UserAgent, cfg.Email.Timeout),
		retry: retryPolicy{
			maxRetries: cfg.Email.MaxRetries,
			base:       cfg.Email.RetryBackoff,
			max:        cfg.Email.RetryBackoffMax,
			metrics:    metrics,
		},
		metrics: metrics,
	}
}

// FetchPageText returns the body of rawURL. Failures are wrapped in ErrEmailFetch.
func (f *PageFetcher) FetchPageText(ctx context.Context, rawURL string) (string, error) {
	target := ensureScheme(rawURL)
	start := time.Now()
	defer func() { f.metrics.ObserveOp("fetch_page", time.Since(start)) }()

	var body string
	err := f.retry.do(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return ErrTimeout{Err: err}
		}
		text, err := f.fetchOnce(target)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err != nil {
		return "", ErrEmailFetch{URL: target, Err: err}
	}
	return body, nil
}

func (f *PageFetcher) fetchOnce(target string) (string, error) {
	c := f.collector.Clone()

	var (
		body       string
		statusCode int
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := c.Visit(target); err != nil {
		return "", classifyError(err, statusCode)
	}
	return body, nil
}

func ensureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "http://") || strings.HasPrefix(strings.ToLower(raw), "https://") {
		return raw
	}
	return "https://" + strings.TrimLeft(raw, "/")
}
