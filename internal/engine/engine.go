package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/events"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
	"github.com/MRamiBalles/ParaBot/internal/platform/metrics"
)

// Engine owns the face store and records every snapshot it publishes into the
// event log and the metrics collector.
type Engine struct {
	store    *Store
	eventLog *events.EventLog
	metrics  *metrics.Collector
	logger   *logger.Logger

	mu          sync.Mutex
	unsubscribe func()
	startedAt   time.Time
	lastOpened  time.Time // recorder goroutine only
}

// NewEngine builds the store and its recorder. collector may be nil to use the
// global one, rng may be nil for a time-seeded source.
func NewEngine(schedule BlinkSchedule, rng *rand.Rand, eventLog *events.EventLog, collector *metrics.Collector, log *logger.Logger) *Engine {
	if collector == nil {
		collector = metrics.Get()
	}
	return &Engine{
		store:    NewStore(schedule, rng, log.Named("store")),
		eventLog: eventLog,
		metrics:  collector,
		logger:   log,
	}
}

// Start subscribes the recorder and starts the blink loop.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.mu.Unlock()
		return
	}
	e.startedAt = time.Now()
	e.lastOpened = e.startedAt
	e.unsubscribe = e.store.Subscribe(e.record)
	e.mu.Unlock()

	e.logger.Info("starting face engine", "state", e.store.Current().String())
	e.store.Start(ctx)
}

// Close tears the store down. Recorded history stays readable.
func (e *Engine) Close() {
	e.store.Close()
	e.logger.Info("face engine stopped")
}

// GetStore exposes the face store to the presentation layer.
func (e *Engine) GetStore() *Store {
	return e.store
}

// GetEventLog exposes the recorded history.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// record turns one store update into a FaceEvent.
func (e *Engine) record(u Update) {
	evt := events.FaceEvent{
		Seq:        u.Seq,
		Timestamp:  u.At,
		Type:       events.Classify(u.Previous, u.State),
		ActorID:    u.Source,
		Emotion:    u.State.Emotion,
		IsBlinking: u.State.IsBlinking,
	}

	e.metrics.RecordSnapshot()
	switch evt.Type {
	case events.EventTypeBlinkStart:
		e.metrics.RecordBlink(u.At.Sub(e.lastOpened))
	case events.EventTypeBlinkEnd:
		e.lastOpened = u.At
	case events.EventTypeEmotionSet:
		evt.Previous = u.Previous.Emotion
		e.metrics.RecordEmotionSet(string(u.State.Emotion))
	}

	if e.eventLog != nil {
		e.eventLog.Append(evt)
	}
	e.logger.Event(string(evt.Type), evt.ActorID, u.State.String())
}
