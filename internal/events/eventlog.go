// Package events provides the face event journal.
// Every snapshot the store publishes is recorded here as an immutable FaceEvent.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
)

// EventType defines the category of a face event.
type EventType string

const (
	EventTypeEmotionSet EventType = "EMOTION_SET"
	EventTypeBlinkStart EventType = "BLINK_START"
	EventTypeBlinkEnd   EventType = "BLINK_END"
)

// FaceEvent represents an immutable record of one published snapshot.
type FaceEvent struct {
	ID         string       `json:"id"`
	Seq        uint64       `json:"seq"`
	Timestamp  time.Time    `json:"timestamp"`
	Type       EventType    `json:"type"`
	ActorID    string       `json:"actor_id"`
	Emotion    face.Emotion `json:"emotion"`
	IsBlinking bool         `json:"is_blinking"`
	Previous   face.Emotion `json:"previous,omitempty"`
}

// State returns the snapshot the event recorded.
func (e FaceEvent) State() face.FaceState {
	return face.FaceState{Emotion: e.Emotion, IsBlinking: e.IsBlinking}
}

// Classify derives the event type from two consecutive snapshots.
// The blink loop only ever flips IsBlinking; SetEmotion never touches it.
func Classify(prev, next face.FaceState) EventType {
	switch {
	case !prev.IsBlinking && next.IsBlinking:
		return EventTypeBlinkStart
	case prev.IsBlinking && !next.IsBlinking:
		return EventTypeBlinkEnd
	default:
		return EventTypeEmotionSet
	}
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event FaceEvent) error
}

// EventLog is a bounded in-memory append-only log of face events.
// The oldest events are evicted once capacity is reached. The backing slice
// may hold up to twice the capacity; only the newest capacity entries are visible.
type EventLog struct {
	mu        sync.RWMutex
	events    []FaceEvent
	capacity  int
	persister EventPersister
	onPersist func(latency time.Duration, err error)
}

// NewEventLog creates a new event log. capacity <= 0 means unbounded.
func NewEventLog(capacity int, persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]FaceEvent, 0),
		capacity:  capacity,
		persister: persister,
	}
}

// OnPersist registers a hook that observes every persister write.
func (el *EventLog) OnPersist(fn func(latency time.Duration, err error)) {
	el.mu.Lock()
	el.onPersist = fn
	el.mu.Unlock()
}

// Append adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event FaceEvent) {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if el.capacity > 0 && len(el.events) >= 2*el.capacity {
		n := copy(el.events, el.events[len(el.events)-el.capacity:])
		clear(el.events[n:])
		el.events = el.events[:n]
	}
	persister := el.persister
	hook := el.onPersist
	el.mu.Unlock()

	if persister != nil {
		start := time.Now()
		err := persister.Append(event)
		if hook != nil {
			hook(time.Since(start), err)
		}
	}
}

// GetByType returns all retained events of a given type.
func (el *EventLog) GetByType(t EventType) []FaceEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []FaceEvent
	for _, e := range el.visible() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the retained history, oldest first.
func (el *EventLog) Replay() []FaceEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	visible := el.visible()
	out := make([]FaceEvent, len(visible))
	copy(out, visible)
	return out
}

// Len returns the number of retained events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.visible())
}

// visible must be called with mu held.
func (el *EventLog) visible() []FaceEvent {
	if el.capacity > 0 && len(el.events) > el.capacity {
		return el.events[len(el.events)-el.capacity:]
	}
	return el.events
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
