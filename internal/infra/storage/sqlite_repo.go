package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/events"
)

const selectColumns = `SELECT id, seq, timestamp_ns, event_type, actor_id, emotion, is_blinking, previous FROM face_events`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event events.FaceEvent) error {
	query := `
		INSERT INTO face_events (id, seq, timestamp_ns, event_type, actor_id, emotion, is_blinking, previous)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, int64(event.Seq), event.Timestamp.UnixNano(), string(event.Type), event.ActorID,
		string(event.Emotion), event.IsBlinking, string(event.Previous),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]events.FaceEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.FaceEvent
	for rows.Next() {
		var (
			e                        events.FaceEvent
			seq, ts                  int64
			eventType, emotion, prev string
		)
		if err := rows.Scan(&e.ID, &seq, &ts, &eventType, &e.ActorID, &emotion, &e.IsBlinking, &prev); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, ts)
		e.Type = events.EventType(eventType)
		e.Emotion = face.Emotion(emotion)
		e.Previous = face.Emotion(prev)
		out = append(out, e)
	}
	return out, rows.Err()
}

// reverse puts newest-first query results back in chronological order.
func reverse(evts []events.FaceEvent) []events.FaceEvent {
	for i, j := 0, len(evts)-1; i < j; i, j = i+1, j-1 {
		evts[i], evts[j] = evts[j], evts[i]
	}
	return evts
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]events.FaceEvent, error) {
	query := selectColumns + ` ORDER BY seq DESC LIMIT ?`
	evts, err := r.getMany(ctx, query, sqlLimit(limit))
	return reverse(evts), err
}

func (r *SQLiteEventRepository) ByType(ctx context.Context, eventType events.EventType, limit int) ([]events.FaceEvent, error) {
	query := selectColumns + ` WHERE event_type = ? ORDER BY seq DESC LIMIT ?`
	evts, err := r.getMany(ctx, query, string(eventType), sqlLimit(limit))
	return reverse(evts), err
}

func (r *SQLiteEventRepository) CountByType(ctx context.Context) (map[events.EventType]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM face_events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[events.EventType]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[events.EventType(t)] = n
	}
	return counts, rows.Err()
}

func (r *SQLiteEventRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `
		DELETE FROM face_events WHERE seq NOT IN (
			SELECT seq FROM face_events ORDER BY seq DESC LIMIT ?
		)
	`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
