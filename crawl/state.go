package crawl

import (
	"github.com/aluiziolira/leadscout/models"
)

// State is the mutable progress of one run. A place enters visited exactly
// once, when it is dequeued, and is never queued again afterwards. Visited
// and queued places never overlap.
type State struct {
	visited map[string]struct{}
	order   []models.PlaceName
	queue   []models.PlaceName
	queued  map[string]struct{}

	qualifying int
	target     int
	records    int
	skipped    int
	byStatus   map[models.Status]int
}

// NewState seeds the queue with a single place.
func NewState(seed models.PlaceName, target int) *State {
	s := &State{
		visited:  make(map[string]struct{}),
		queued:   make(map[string]struct{}),
		target:   target,
		byStatus: make(map[models.Status]int),
	}
	s.Enqueue([]models.PlaceName{seed})
	return s
}

// Next dequeues the next unvisited place and marks it visited.
func (s *State) Next() (models.PlaceName, bool) {
	for len(s.queue) > 0 {
		place := s.queue[0]
		s.queue = s.queue[1:]
		key := place.Key()
		delete(s.queued, key)
		if _, seen := s.visited[key]; seen {
			continue
		}
		s.visited[key] = struct{}{}
		s.order = append(s.order, place)
		return place, true
	}
	return "", false
}

// Enqueue appends places that are neither visited nor already queued, in the
// given order, and returns how many were added.
func (s *State) Enqueue(places []models.PlaceName) int {
	added := 0
	for _, place := range places {
		key := place.Key()
		if key == "" {
			continue
		}
		if _, seen := s.visited[key]; seen {
			continue
		}
		if _, waiting := s.queued[key]; waiting {
			continue
		}
		s.queued[key] = struct{}{}
		s.queue = append(s.queue, place)
		added++
	}
	return added
}

// Record counts an emitted record.
func (s *State) Record(rec models.ListingRecord) {
	s.records++
	s.byStatus[rec.Status]++
	if rec.Qualifies() {
		s.qualifying++
	}
}

// Skip counts a listing dropped before classification.
func (s *State) Skip() {
	s.skipped++
}

// TargetReached reports whether enough qualifying records were emitted.
func (s *State) TargetReached() bool {
	return s.qualifying >= s.target
}

// Visited reports whether place was already dequeued.
func (s *State) Visited(place models.PlaceName) bool {
	_, ok := s.visited[place.Key()]
	return ok
}

// Pending returns the number of queued places.
func (s *State) Pending() int {
	return len(s.queue)
}

// Progress returns the current qualifying count against the target.
func (s *State) Progress() models.Progress {
	return models.Progress{Qualifying: s.qualifying, Target: s.target}
}

// VisitedOrder returns the places in the order they were dequeued.
func (s *State) VisitedOrder() []models.PlaceName {
	return append([]models.PlaceName(nil), s.order...)
}

func (s *State) fill(result *models.CrawlResult) {
	result.Qualifying = s.qualifying
	result.Target = s.target
	result.PlacesVisited = s.VisitedOrder()
	result.RecordCount = s.records
	result.SkippedListings = s.skipped
	result.RecordsByStatus = make(map[models.Status]int, len(s.byStatus))
	for status, n := range s.byStatus {
		result.RecordsByStatus[status] = n
	}
}
