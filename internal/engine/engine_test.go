package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/events"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
	"github.com/MRamiBalles/ParaBot/internal/platform/metrics"
)

type memPersister struct {
	appended chan events.FaceEvent
}

func (m *memPersister) Append(evt events.FaceEvent) error {
	m.appended <- evt
	return nil
}

func newTestEngine(t *testing.T, schedule BlinkSchedule) (*Engine, *metrics.Collector, *memPersister) {
	t.Helper()
	p := &memPersister{appended: make(chan events.FaceEvent, 1024)}
	c := metrics.NewCollector()
	log := events.NewEventLog(256, p)
	log.OnPersist(c.RecordEventWrite)
	e := NewEngine(schedule, rand.New(rand.NewSource(3)), log, c, logger.Discard())
	return e, c, p
}

func TestEngineRecordsEmotionEvents(t *testing.T) {
	e, c, p := newTestEngine(t, DefaultBlinkSchedule())
	e.Start(context.Background())

	if err := e.GetStore().SetEmotionBy("tester", face.Happy); err != nil {
		t.Fatalf("SetEmotionBy: %v", err)
	}

	var evt events.FaceEvent
	select {
	case evt = <-p.appended:
	case <-time.After(time.Second):
		t.Fatalf("event not persisted")
	}
	e.Close()

	if evt.Type != events.EventTypeEmotionSet {
		t.Errorf("expected %s, got %s", events.EventTypeEmotionSet, evt.Type)
	}
	if evt.Emotion != face.Happy || evt.Previous != face.Neutral || evt.ActorID != "tester" {
		t.Errorf("unexpected event %+v", evt)
	}
	if evt.ID == "" || evt.Seq != 1 {
		t.Errorf("expected ID and seq 1, got %q/%d", evt.ID, evt.Seq)
	}
	if c.EmotionCounts()["HAPPY"] != 1 {
		t.Errorf("expected metrics to count the emotion, got %v", c.EmotionCounts())
	}
	if e.GetEventLog().Len() != 1 {
		t.Errorf("expected 1 event in log, got %d", e.GetEventLog().Len())
	}
}

func TestEngineRecordsBlinkEvents(t *testing.T) {
	e, c, _ := newTestEngine(t, fastSchedule())
	e.Start(context.Background())

	log := e.GetEventLog()
	if !waitFor(t, 2*time.Second, func() bool {
		return len(log.GetByType(events.EventTypeBlinkEnd)) >= 2
	}) {
		t.Fatalf("expected blink events, got %d total", log.Len())
	}
	e.Close()

	starts := log.GetByType(events.EventTypeBlinkStart)
	ends := log.GetByType(events.EventTypeBlinkEnd)
	if len(starts) < len(ends) {
		t.Errorf("more reopens (%d) than closes (%d)", len(ends), len(starts))
	}
	for _, evt := range starts {
		if !evt.IsBlinking || evt.ActorID != SourceBlinkLoop {
			t.Errorf("unexpected blink start %+v", evt)
		}
	}

	snap := c.Snapshot()["face"].(map[string]interface{})
	if snap["blinks"].(int64) != int64(len(starts)) {
		t.Errorf("metrics counted %v blinks, log has %d", snap["blinks"], len(starts))
	}
}

func TestEngineWithoutEventLog(t *testing.T) {
	e := NewEngine(DefaultBlinkSchedule(), nil, nil, metrics.NewCollector(), logger.Discard())
	e.Start(context.Background())
	e.Start(context.Background())
	defer e.Close()

	if err := e.GetStore().SetEmotion(face.Sleepy); err != nil {
		t.Fatalf("SetEmotion: %v", err)
	}
	if e.GetEventLog() != nil {
		t.Errorf("expected nil event log")
	}
}
