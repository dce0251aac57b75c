// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one line of the audit trail
type Event struct {
	Kind         string    `json:"kind"`
	UserID       string    `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	IP           string    `json:"ip,omitempty"`
	QuestionID   string    `json:"question_id,omitempty"`
	QuestionText string    `json:"question_text,omitempty"`
	ChoiceID     string    `json:"choice_id,omitempty"`
	ChoiceText   string    `json:"choice_text,omitempty"`
	Time         time.Time `json:"time"`
}

// Sink stores or forwards audit events
type Sink interface {
	Write(ctx context.Context, e Event) error
	Name() string
}

// Logger queues events and fans them out to its sinks from one worker
// goroutine. Record never blocks: when the queue is full the event is dropped.
type Logger struct {
	sinks   []Sink
	queue   chan Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewLogger(buffer int, sinks ...Sink) *Logger {
	l := &Logger{
		sinks:   sinks,
		queue:   make(chan Event, buffer),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Record enqueues e for delivery
func (l *Logger) Record(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		slog.Warn("audit event dropped, logger closed", "kind", e.Kind)
		return
	}

	select {
	case l.queue <- e:
	default:
		slog.Warn("audit queue full, event dropped", "kind", e.Kind, "user", e.Username)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		for _, sink := range l.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
			if err := sink.Write(ctx, e); err != nil {
				slog.Warn("audit sink failed", "sink", sink.Name(), "kind", e.Kind, "error", err)
			}
			cancel()
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (l *Logger) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
}
