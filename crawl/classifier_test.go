package crawl

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/parser"
	"github.com/aluiziolira/leadscout/scraper"
)

func newTestClassifier(t *testing.T, s *fakeSession, opts ClassifierOptions) *Classifier {
	t.Helper()
	c, err := NewClassifier(s, s, opts)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func classify(t *testing.T, c *Classifier, facts models.ListingFacts) models.ListingRecord {
	t.Helper()
	rec, err := c.Classify(context.Background(), facts)
	if err != nil {
		t.Fatalf("classify %q: %v", facts.Name, err)
	}
	return rec
}

func TestClassifyOfficialWebsite(t *testing.T) {
	s := newFakeSession()
	s.pages["http://acme-hvac.com"] = `<img src="logo@2x.png"> Contact: office@acme-hvac.com or sales@acme-hvac.com`
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{
		SourceURL:      "https://maps.test/acme",
		Name:           "Acme HVAC",
		PrimaryWebsite: "http://acme-hvac.com",
	})
	if rec.Status != models.StatusOfficialWebsite {
		t.Fatalf("status = %v, want OfficialWebsite", rec.Status)
	}
	if rec.Website != "http://acme-hvac.com" || rec.Email != "office@acme-hvac.com" {
		t.Fatalf("website=%q email=%q", rec.Website, rec.Email)
	}
	if rec.Qualifies() {
		t.Fatal("official website should not qualify")
	}
	if s.verifyCalls != 0 {
		t.Fatalf("verifyCalls = %d, want 0", s.verifyCalls)
	}
}

func TestClassifyPlatformOnly(t *testing.T) {
	s := newFakeSession()
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{
		SourceURL:      "https://maps.test/joe",
		Name:           "Joe's Plumbing",
		PrimaryWebsite: "http://facebook.com/joesplumbing",
	})
	if rec.Status != models.StatusPlatformOnly || !rec.Qualifies() {
		t.Fatalf("status = %v, want qualifying PlatformOnly", rec.Status)
	}
	if rec.Website != "http://facebook.com/joesplumbing" {
		t.Fatalf("website = %q", rec.Website)
	}
	if s.fetchCalls != 0 {
		t.Fatalf("fetchCalls = %d, platform links are not mined for email", s.fetchCalls)
	}
}

func TestClassifyFoundViaSearch(t *testing.T) {
	s := newFakeSession()
	s.found["Hidden Gem"] = true
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{SourceURL: "https://maps.test/gem", Name: "Hidden Gem"})
	if rec.Status != models.StatusFoundViaSearch || rec.Qualifies() {
		t.Fatalf("status = %v, want non-qualifying FoundViaSearch", rec.Status)
	}
	if rec.Website != "" {
		t.Fatalf("website = %q, want empty", rec.Website)
	}
}

func TestClassifyNoWebsite(t *testing.T) {
	s := newFakeSession()
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{SourceURL: "https://maps.test/x", Name: "Quiet Co"})
	if rec.Status != models.StatusNoWebsite || !rec.Qualifies() {
		t.Fatalf("status = %v, want qualifying NoWebsite", rec.Status)
	}
}

func TestClassifyBlankWebsiteIsNoWebsite(t *testing.T) {
	s := newFakeSession()
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Blank", PrimaryWebsite: "   "})
	if rec.Status != models.StatusNoWebsite {
		t.Fatalf("status = %v, want NoWebsite", rec.Status)
	}
	if rec.Website != "" {
		t.Fatalf("website = %q, want empty", rec.Website)
	}
}

func TestClassifyTrimsWebsite(t *testing.T) {
	s := newFakeSession()
	s.pages["https://padded.test"] = "hello@padded.test"
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Padded", PrimaryWebsite: " https://padded.test \n"})
	if rec.Status != models.StatusOfficialWebsite {
		t.Fatalf("status = %v, want OfficialWebsite", rec.Status)
	}
	if rec.Website != "https://padded.test" || rec.Email != "hello@padded.test" {
		t.Fatalf("website=%q email=%q", rec.Website, rec.Email)
	}
}

func TestClassifyVerifierErrorMeansNotFound(t *testing.T) {
	s := newFakeSession()
	s.verifyErr["Flaky"] = scraper.ErrVerification{Err: errors.New("navigation timeout")}
	s.verifyErr["Linked"] = scraper.ErrVerification{Err: errors.New("navigation timeout")}
	c := newTestClassifier(t, s, ClassifierOptions{})

	if rec := classify(t, c, models.ListingFacts{SourceURL: "u1", Name: "Flaky"}); rec.Status != models.StatusNoWebsite {
		t.Fatalf("status = %v, want NoWebsite", rec.Status)
	}
	rec := classify(t, c, models.ListingFacts{SourceURL: "u2", Name: "Linked", PrimaryWebsite: "https://www.yelp.com/biz/linked"})
	if rec.Status != models.StatusPlatformOnly {
		t.Fatalf("status = %v, want PlatformOnly", rec.Status)
	}
}

func TestClassifyEmailFetchErrorMeansNoEmail(t *testing.T) {
	s := newFakeSession()
	s.pageErr["https://down.test"] = scraper.ErrEmailFetch{URL: "https://down.test", Err: errors.New("502")}
	c := newTestClassifier(t, s, ClassifierOptions{})

	rec := classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Down", PrimaryWebsite: "https://down.test"})
	if rec.Status != models.StatusOfficialWebsite || rec.Email != "" {
		t.Fatalf("status=%v email=%q, want OfficialWebsite without email", rec.Status, rec.Email)
	}
}

func TestClassifyLogsLookupFailuresWithRunLogger(t *testing.T) {
	s := newFakeSession()
	s.verifyErr["Flaky"] = scraper.ErrVerification{Err: errors.New("navigation timeout")}
	s.pageErr["https://down.test"] = scraper.ErrEmailFetch{URL: "https://down.test", Err: errors.New("502")}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With(slog.String("run_id", "run-7"))
	c := newTestClassifier(t, s, ClassifierOptions{Logger: logger})

	classify(t, c, models.ListingFacts{SourceURL: "u1", Name: "Flaky"})
	classify(t, c, models.ListingFacts{SourceURL: "u2", Name: "Down", PrimaryWebsite: "https://down.test"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"website verification failed", "email fetch failed"} {
		if !strings.Contains(lines[i], want) || !strings.Contains(lines[i], "run_id=run-7") {
			t.Fatalf("line %d = %q, want %q with run_id", i, lines[i], want)
		}
	}
}

func TestClassifyFatalVerifierErrorPropagates(t *testing.T) {
	s := newFakeSession()
	s.verifyErr["Any"] = scraper.ErrFatalAutomation{Err: context.Canceled}
	c := newTestClassifier(t, s, ClassifierOptions{})

	_, err := c.Classify(context.Background(), models.ListingFacts{SourceURL: "u", Name: "Any"})
	if !scraper.IsFatal(err) {
		t.Fatalf("err = %v, want fatal automation error", err)
	}
}

func TestClassifyIsDeterministicAndCached(t *testing.T) {
	s := newFakeSession()
	s.pages["https://beta.test"] = "mail info@beta.test"
	s.found["Gamma"] = true
	c := newTestClassifier(t, s, ClassifierOptions{CacheSize: 16})

	facts := []models.ListingFacts{
		{SourceURL: "u1", Name: "Beta", PrimaryWebsite: "https://beta.test"},
		{SourceURL: "u2", Name: "Gamma", Address: "2 Oak"},
	}
	var first []models.ListingRecord
	for _, f := range facts {
		first = append(first, classify(t, c, f))
	}
	for i, f := range facts {
		if rec := classify(t, c, f); rec != first[i] {
			t.Fatalf("second pass %d = %+v, want %+v", i, rec, first[i])
		}
	}
	if s.fetchCalls != 1 || s.verifyCalls != 1 {
		t.Fatalf("fetchCalls=%d verifyCalls=%d, want 1/1", s.fetchCalls, s.verifyCalls)
	}
}

func TestClassifyAcceptEmail(t *testing.T) {
	s := newFakeSession()
	s.pages["https://multi.test"] = "first@nomx.test second@multi.test"
	c := newTestClassifier(t, s, ClassifierOptions{
		AcceptEmail: func(_ context.Context, email string) bool {
			return email != "first@nomx.test"
		},
	})

	rec := classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Multi", PrimaryWebsite: "https://multi.test"})
	if rec.Email != "second@multi.test" {
		t.Fatalf("email = %q, want second@multi.test", rec.Email)
	}
}

func TestClassifyCustomPlatforms(t *testing.T) {
	s := newFakeSession()
	c := newTestClassifier(t, s, ClassifierOptions{Platforms: parser.NewDomainSet([]string{"acme-hvac.com"})})

	rec := classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Acme", PrimaryWebsite: "http://acme-hvac.com"})
	if rec.Status != models.StatusPlatformOnly {
		t.Fatalf("status = %v, want PlatformOnly", rec.Status)
	}
}

func TestClassifyLogsDecisions(t *testing.T) {
	s := newFakeSession()
	var lines []string
	c := newTestClassifier(t, s, ClassifierOptions{Log: func(msg string) { lines = append(lines, msg) }})

	classify(t, c, models.ListingFacts{SourceURL: "u", Name: "Quiet Co"})
	want := []string{
		"[CHECK] Quiet Co - No website listed. Verifying with search...",
		"[KEPT] Quiet Co - No website found.",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("log = %q, want %q", lines, want)
	}
}
