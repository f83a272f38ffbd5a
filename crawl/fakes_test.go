package crawl

import (
	"context"
	"iter"
	"sync"

	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/pipeline"
)

type listing struct {
	facts models.ListingFacts
	err   error
}

// fakeSession serves canned automation responses keyed by place and business name.
type fakeSession struct {
	mu sync.Mutex

	listings     map[string][]listing
	neighbors    map[string][]models.PlaceName
	neighborErr  map[string]error
	found        map[string]bool
	verifyErr    map[string]error
	pages        map[string]string
	pageErr      map[string]error
	cancelOnList context.CancelFunc

	searched      []models.PlaceName
	neighborCalls []models.PlaceName
	verifyCalls   int
	fetchCalls    int
	closed        int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		listings:    make(map[string][]listing),
		neighbors:   make(map[string][]models.PlaceName),
		neighborErr: make(map[string]error),
		found:       make(map[string]bool),
		verifyErr:   make(map[string]error),
		pages:       make(map[string]string),
		pageErr:     make(map[string]error),
	}
}

func (s *fakeSession) add(place string, facts ...models.ListingFacts) {
	for _, f := range facts {
		s.listings[models.PlaceName(place).Key()] = append(s.listings[models.PlaceName(place).Key()], listing{facts: f})
	}
}

func (s *fakeSession) DiscoverListings(_ context.Context, q models.CrawlQuery) iter.Seq2[models.ListingFacts, error] {
	s.mu.Lock()
	s.searched = append(s.searched, q.Place)
	items := s.listings[q.Place.Key()]
	cancel := s.cancelOnList
	s.mu.Unlock()

	return func(yield func(models.ListingFacts, error) bool) {
		if cancel != nil {
			cancel()
		}
		for _, item := range items {
			if !yield(item.facts, item.err) {
				return
			}
		}
	}
}

func (s *fakeSession) DiscoverNeighbors(_ context.Context, place models.PlaceName) ([]models.PlaceName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neighborCalls = append(s.neighborCalls, place)
	if err := s.neighborErr[place.Key()]; err != nil {
		return nil, err
	}
	return s.neighbors[place.Key()], nil
}

func (s *fakeSession) VerifyIndependentWebsite(_ context.Context, name, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls++
	if err := s.verifyErr[name]; err != nil {
		return false, err
	}
	return s.found[name], nil
}

func (s *fakeSession) FetchPageText(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if err := s.pageErr[url]; err != nil {
		return "", err
	}
	return s.pages[url], nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type event struct {
	kind    string
	message string
	record  models.ListingRecord
	prog    models.Progress
}

type recordingObserver struct {
	mu     sync.Mutex
	events []event
}

func (o *recordingObserver) push(e event) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recordingObserver) Log(message string) { o.push(event{kind: "log", message: message}) }
func (o *recordingObserver) Result(rec models.ListingRecord) {
	o.push(event{kind: "result", record: rec})
}
func (o *recordingObserver) Progress(p models.Progress) { o.push(event{kind: "progress", prog: p}) }
func (o *recordingObserver) Complete(sinkID string) { o.push(event{kind: "complete", message: sinkID}) }
func (o *recordingObserver) Error(message string) { o.push(event{kind: "error", message: message}) }

func (o *recordingObserver) kinds(kind string) []event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []event
	for _, e := range o.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (o *recordingObserver) terminal() []event {
	return append(o.kinds("complete"), o.kinds("error")...)
}

type memoryEmitter struct {
	records  []models.ListingRecord
	progress []models.Progress
	err      error
}

func (m *memoryEmitter) Emit(rec models.ListingRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryEmitter) ReportProgress(p models.Progress) {
	m.progress = append(m.progress, p)
}

type memoryWriter struct {
	mu          sync.Mutex
	records     []models.ListingRecord
	closed      bool
	validateErr error
}

func (w *memoryWriter) Write(recs []models.ListingRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, recs...)
	return nil
}

func (w *memoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memoryWriter) Validate() error { return w.validateErr }

type memorySinks struct {
	writer  *memoryWriter
	err     error
	sinkIDs []string
}

func (m *memorySinks) Open(_ string, sinkID string) (pipeline.OutputWriter, error) {
	m.sinkIDs = append(m.sinkIDs, sinkID)
	if m.err != nil {
		return nil, m.err
	}
	return m.writer, nil
}

func noWebsite(place string, i int) models.ListingFacts {
	name := place + " business " + string(rune('A'+i))
	return models.ListingFacts{
		SourceURL: "https://maps.test/" + place + "/" + string(rune('a'+i)),
		Name:      name,
		Address:   "1 Main St, " + place,
	}
}

func places(names ...string) []models.PlaceName {
	out := make([]models.PlaceName, len(names))
	for i, n := range names {
		out[i] = models.PlaceName(n)
	}
	return out
}
