// Package transport delivers run events to live clients over websockets and
// mirrors them to NATS.
package transport

import (
	"encoding/json"

	"github.com/aluiziolira/leadscout/models"
)

// Event types sent to clients.
const (
	EventLog      = "log"
	EventResult   = "result"
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is the envelope of every message sent to clients.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"runId,omitempty"`
	Data  any    `json:"data"`
}

type completeData struct {
	SinkID string `json:"sinkId"`
}

type errorData struct {
	Message string `json:"message"`
}

// Command is a client request. Only "start" is understood.
type Command struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

func encodeEvent(kind, runID string, data any) ([]byte, error) {
	return json.Marshal(Event{Type: kind, RunID: runID, Data: data})
}

// eventSink turns observer calls into encoded envelopes.
type eventSink func(kind string, data any)

func (f eventSink) Log(message string)                 { f(EventLog, message) }
func (f eventSink) Result(record models.ListingRecord) { f(EventResult, record) }
func (f eventSink) Progress(p models.Progress)         { f(EventProgress, p) }
func (f eventSink) Complete(sinkID string)             { f(EventComplete, completeData{SinkID: sinkID}) }
func (f eventSink) Error(message string)               { f(EventError, errorData{Message: message}) }
