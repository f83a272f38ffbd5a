// Package pipeline forwards classified records to the live observer and the
// persistence sinks.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aluiziolira/leadscout/models"
)

var (
	// ErrEmitterClosed is returned when Emit is called after shutdown or after
	// the sink failed.
	ErrEmitterClosed = errors.New("pipeline: emitter closed")
)

// OutputWriter defines the interface for record persistence.
type OutputWriter interface {
	Write(records []models.ListingRecord) error
	Close() error
	Validate() error
}

// Forwarder receives records and progress snapshots for live delivery.
type Forwarder interface {
	Result(record models.ListingRecord)
	Progress(p models.Progress)
}

// Stats is a snapshot of the emitter counters.
type Stats struct {
	Emitted int64
	Written int64
}

// Emitter forwards each record to the live forwarder and queues it for the
// sink. Sink writes happen on a single worker so file order matches emit order.
type Emitter struct {
	writer    OutputWriter
	forwarder Forwarder
	recordCh  chan models.ListingRecord
	batchSize int

	wg sync.WaitGroup

	emitted atomic.Int64
	written atomic.Int64

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewEmitter builds an emitter with a modest in-memory buffer.
func NewEmitter(writer OutputWriter, forwarder Forwarder) *Emitter {
	return &Emitter{
		writer:    writer,
		forwarder: forwarder,
		recordCh:  make(chan models.ListingRecord, 256),
		batchSize: 32,
		shutdown:  make(chan struct{}),
	}
}

// Start launches the sink worker.
func (e *Emitter) Start() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.wg.Add(1)
	go e.worker()
}

// Emit forwards record to the observer and queues it for persistence.
func (e *Emitter) Emit(record models.ListingRecord) error {
	closed, err := e.state()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmitterClosed, err)
	}
	if closed {
		return ErrEmitterClosed
	}

	if e.forwarder != nil {
		e.forwarder.Result(record)
	}
	if err := e.enqueue(record); err != nil {
		return err
	}
	e.emitted.Add(1)
	return nil
}

// ReportProgress sends a progress snapshot to the observer.
func (e *Emitter) ReportProgress(p models.Progress) {
	if e.forwarder != nil {
		e.forwarder.Progress(p)
	}
}

// Close waits for queued records to reach the sink, validates it and closes
// the writer.
// It is safe to call more than once.
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		close(e.recordCh)
		e.wg.Wait()
		e.signalShutdown()

		if e.Err() == nil {
			if err := e.writer.Validate(); err != nil {
				e.setErr(fmt.Errorf("validate sink: %w", err))
			}
		}
		if err := e.writer.Close(); err != nil {
			e.setErr(fmt.Errorf("close writer: %w", err))
		}
	})
	return e.Err()
}

// Err returns the first error encountered while writing.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Stats returns a snapshot of the emitter counters.
func (e *Emitter) Stats() Stats {
	return Stats{
		Emitted: e.emitted.Load(),
		Written: e.written.Load(),
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()

	batch := make([]models.ListingRecord, 0, e.batchSize)
	for record := range e.recordCh {
		batch = append(batch, record)
	drain:
		for len(batch) < e.batchSize {
			select {
			case next, ok := <-e.recordCh:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		if err := e.writer.Write(batch); err != nil {
			e.setErr(fmt.Errorf("write batch: %w", err))
			slog.Error("sink write failed", slog.Int("records", len(batch)), slog.Any("error", err))
			// Keep draining so Emit never blocks on a dead sink.
			for range e.recordCh {
			}
			return
		}
		e.written.Add(int64(len(batch)))
		batch = batch[:0]
	}
}

func (e *Emitter) enqueue(record models.ListingRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrEmitterClosed
		}
	}()

	select {
	case <-e.shutdown:
		return ErrEmitterClosed
	case e.recordCh <- record:
		return nil
	}
}

func (e *Emitter) setErr(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil {
		e.err = err
	}
}

func (e *Emitter) state() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed, e.err
}

func (e *Emitter) signalShutdown() {
	e.shutdownOnce.Do(func() {
		close(e.shutdown)
	})
}
