package storage

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/events"
)

// Reconstructor rebuilds face state from the journal: state = f(events).
// This is used for:
// 1. Cross-checking the journal against the live store
// 2. The human-readable recap served next to the raw history
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEntry is a simplified event for display.
type RecapEntry struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"`
}

// Rebuild replays every retained event on top of initial.
func (r *Reconstructor) Rebuild(ctx context.Context, initial face.FaceState) (face.FaceState, error) {
	evts, err := r.eventRepo.Recent(ctx, 0)
	if err != nil {
		return initial, fmt.Errorf("failed to load journal: %w", err)
	}
	return Replay(initial, evts), nil
}

// Replay applies events in order.
func Replay(initial face.FaceState, evts []events.FaceEvent) face.FaceState {
	state := initial
	for _, e := range evts {
		state = apply(state, e)
	}
	return state
}

// Recap returns summaries of the newest limit events.
func (r *Reconstructor) Recap(ctx context.Context, limit int) ([]RecapEntry, error) {
	evts, err := r.eventRepo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEntry, 0, len(evts))
	for _, e := range evts {
		recap = append(recap, RecapEntry{
			Seq:       e.Seq,
			Timestamp: e.Timestamp.Format("15:04:05.000"),
			EventType: string(e.Type),
			Summary:   summarizeEvent(e),
		})
	}
	return recap, nil
}

// apply only touches the field the event type owns.
func apply(state face.FaceState, e events.FaceEvent) face.FaceState {
	switch e.Type {
	case events.EventTypeEmotionSet:
		return state.WithEmotion(e.Emotion)
	case events.EventTypeBlinkStart:
		return state.WithBlinking(true)
	case events.EventTypeBlinkEnd:
		return state.WithBlinking(false)
	}
	return state
}

func summarizeEvent(e events.FaceEvent) string {
	switch e.Type {
	case events.EventTypeEmotionSet:
		if e.Previous != "" && e.Previous != e.Emotion {
			return fmt.Sprintf("%s changed the face from %s to %s", e.ActorID, e.Previous.Label(), e.Emotion.Label())
		}
		return fmt.Sprintf("%s set the face to %s", e.ActorID, e.Emotion.Label())
	case events.EventTypeBlinkStart:
		return "Eyes closed"
	case events.EventTypeBlinkEnd:
		return "Eyes opened"
	default:
		return "Unknown event"
	}
}
