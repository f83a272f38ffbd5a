package transport

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/websocket/v2"

	"github.com/aluiziolira/leadscout/crawl"
)

// socketBuffer is how many events a client may lag behind before it is cut off.
const socketBuffer = 256

// MessageWriter is the write side of a websocket connection.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// socketWriter queues events for one connection and writes them from a single
// pump goroutine, so a slow client never stalls the run producing them. A
// client that falls socketBuffer events behind, or whose write fails, gets no
// further events.
type socketWriter struct {
	conn  MessageWriter
	queue chan []byte
	done  chan struct{}

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
	failed atomic.Bool
}

func newSocketWriter(conn MessageWriter, buffer int) *socketWriter {
	w := &socketWriter{
		conn:  conn,
		queue: make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
	go w.pump()
	return w
}

func (w *socketWriter) pump() {
	defer close(w.done)
	for payload := range w.queue {
		if w.failed.Load() {
			continue
		}
		if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Debug("websocket write failed", slog.Any("error", err))
			w.failed.Store(true)
		}
	}
}

func (w *socketWriter) send(kind, runID string, data any) {
	payload, err := encodeEvent(kind, runID, data)
	if err != nil {
		slog.Error("encode event failed", slog.String("type", kind), slog.Any("error", err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.failed.Load() {
		return
	}
	select {
	case w.queue <- payload:
	default:
		slog.Warn("websocket client too slow, dropping its events", slog.String("run_id", runID))
		w.failed.Store(true)
	}
}

// abort discards queued and future events. The connection is gone.
func (w *socketWriter) abort() {
	w.failed.Store(true)
}

// close stops accepting events and waits until queued ones are written or
// discarded. It is safe to call more than once.
func (w *socketWriter) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

// observer returns a crawl observer that tags events with runID.
func (w *socketWriter) observer(runID string) crawl.Observer {
	return eventSink(func(kind string, data any) {
		w.send(kind, runID, data)
	})
}
