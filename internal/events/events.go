// Package events carries task graph progress from the scheduler to any
// number of observers: log output, a terminal summary, metrics and remote
// forwarders.
package events

import (
	"sync"
	"time"
)

// Type names a progress event.
type Type string

const (
	TaskPending       Type = "taskPending"
	TaskProcessing    Type = "taskProcessing"
	TaskComplete      Type = "taskComplete"
	TaskError         Type = "taskError"
	TaskSkipped       Type = "taskSkipped"
	TaskGraphComplete Type = "taskGraphComplete"
)

// Event is one progress notification. Task fields are empty for
// TaskGraphComplete.
type Event struct {
	Type        Type          `json:"type"`
	BatchID     string        `json:"batchId"`
	Key         string        `json:"key,omitempty"`
	Name        string        `json:"name,omitempty"`
	TaskType    string        `json:"taskType,omitempty"`
	Description string        `json:"description,omitempty"`
	Version     string        `json:"version,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Time        time.Time     `json:"time"`
}

// Observer receives events. Notify is called synchronously from scheduler
// workers and must not block.
type Observer interface {
	Notify(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// Notify calls f.
func (f ObserverFunc) Notify(e Event) { f(e) }

// Bus fans events out to its observers. A nil *Bus discards events.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus returns a bus with the given observers.
func NewBus(observers ...Observer) *Bus {
	return &Bus{observers: observers}
}

// Subscribe adds an observer.
func (b *Bus) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Publish delivers e to every observer in subscription order.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.observers {
		o.Notify(e)
	}
}

// Recorder is an Observer that keeps every event, for tests and summaries.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Observer.
func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the keys of recorded events of the given type.
func (r *Recorder) OfType(t Type) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, e := range r.events {
		if e.Type == t {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
