// Package storage provides the face event journal.
// This package implements the repository pattern so the engine only sees
// events.EventPersister.
package storage

import (
	"context"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/events"
)

// EventRepository defines the interface for journal access.
type EventRepository interface {
	// Append adds a new event to the journal.
	Append(ctx context.Context, event events.FaceEvent) error

	// Recent returns up to limit of the newest events, oldest first.
	Recent(ctx context.Context, limit int) ([]events.FaceEvent, error)

	// ByType returns up to limit of the newest events of one type, oldest first.
	ByType(ctx context.Context, eventType events.EventType, limit int) ([]events.FaceEvent, error)

	// CountByType returns how many retained events exist per type.
	CountByType(ctx context.Context) (map[events.EventType]int64, error)

	// Prune deletes all but the newest keep events and reports how many went.
	Prune(ctx context.Context, keep int) (int64, error)
}

// DefaultWriteTimeout bounds a single journal write issued by the persister.
const DefaultWriteTimeout = 2 * time.Second

// Persister adapts an EventRepository to events.EventPersister.
type Persister struct {
	repo    EventRepository
	timeout time.Duration
}

// NewPersister wraps repo. timeout <= 0 uses DefaultWriteTimeout.
func NewPersister(repo EventRepository, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Persister{repo: repo, timeout: timeout}
}

// Append writes one event with a bounded deadline.
func (p *Persister) Append(event events.FaceEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, event)
}
