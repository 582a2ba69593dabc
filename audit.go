package idrelay

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent is one security-relevant relay event. It never carries the raw
// credential; TokenID identifies it.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to a consumer goroutine. Emit blocks while the
// channel is full unless ctx ends first.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a ChannelSink buffering up to buffer events (at least one).
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events is the receive side consumers drain.
func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// JSONWriterSink writes newline-delimited JSON. Writes are serialized.
type JSONWriterSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	failed atomic.Uint64
}

// NewJSONWriterSink encodes to w. A nil w discards.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONWriterSink{enc: enc}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	s.mu.Lock()
	err := s.enc.Encode(event)
	s.mu.Unlock()
	if err != nil {
		s.failed.Add(1)
	}
}

// Failed returns the number of events that could not be written.
func (s *JSONWriterSink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}

// LoggerSink writes each event as a structured log line on the given logger,
// at info level for successes and warn for failures.
type LoggerSink struct {
	log zerolog.Logger
}

// NewLoggerSink returns a LoggerSink writing to log.
func NewLoggerSink(log zerolog.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

func (s *LoggerSink) Emit(_ context.Context, event AuditEvent) {
	e := s.log.Info()
	if !event.Success {
		e = s.log.Warn()
	}
	e = e.Str("audit", event.EventType).
		Time("at", event.Timestamp).
		Bool("success", event.Success)
	if event.Subject != "" {
		e = e.Str("subject", event.Subject)
	}
	if event.TokenID != "" {
		e = e.Str("jti", event.TokenID)
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.Error != "" {
		e = e.Str("error_code", event.Error)
	}
	if len(event.Metadata) > 0 {
		e = e.Interface("metadata", event.Metadata)
	}
	e.Msg("audit event")
}
