package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/events"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

func newTestRepo(t *testing.T) *SQLiteEventRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := InitSQLite(dsn)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteEventRepository(db)
}

// seed appends: emotion HAPPY, then n blink start/end pairs.
func seed(t *testing.T, repo EventRepository, blinks int) []events.FaceEvent {
	t.Helper()
	base := time.Unix(1700000000, 0)
	evts := []events.FaceEvent{{
		Type: events.EventTypeEmotionSet, ActorID: "CONTROL",
		Emotion: face.Happy, Previous: face.Neutral,
	}}
	for i := 0; i < blinks; i++ {
		evts = append(evts,
			events.FaceEvent{Type: events.EventTypeBlinkStart, ActorID: "SYSTEM_BLINK", Emotion: face.Happy, IsBlinking: true},
			events.FaceEvent{Type: events.EventTypeBlinkEnd, ActorID: "SYSTEM_BLINK", Emotion: face.Happy},
		)
	}
	for i := range evts {
		evts[i].ID = events.GenerateEventID()
		evts[i].Seq = uint64(i + 1)
		evts[i].Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := repo.Append(context.Background(), evts[i]); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return evts
}

func TestAppendAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	want := seed(t, repo, 2)

	got, err := repo.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Seq != want[i].Seq || got[i].Type != want[i].Type {
			t.Errorf("event %d: got %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("event %d: timestamp %v, want %v", i, got[i].Timestamp, want[i].Timestamp)
		}
		if got[i].State() != want[i].State() {
			t.Errorf("event %d: state %s, want %s", i, got[i].State(), want[i].State())
		}
	}
	if got[0].Previous != face.Neutral {
		t.Errorf("expected previous emotion to round-trip, got %q", got[0].Previous)
	}

	last, err := repo.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(last) != 2 || last[0].Seq != 4 || last[1].Seq != 5 {
		t.Errorf("expected the two newest events oldest first, got %+v", last)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	repo := newTestRepo(t)
	evts := seed(t, repo, 0)
	if err := repo.Append(context.Background(), evts[0]); err == nil {
		t.Errorf("expected duplicate id to be rejected")
	}
}

func TestByTypeAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, 3)
	ctx := context.Background()

	starts, err := repo.ByType(ctx, events.EventTypeBlinkStart, 0)
	if err != nil {
		t.Fatalf("ByType: %v", err)
	}
	if len(starts) != 3 {
		t.Errorf("expected 3 blink starts, got %d", len(starts))
	}
	for _, e := range starts {
		if !e.IsBlinking {
			t.Errorf("blink start recorded open eyes: %+v", e)
		}
	}

	counts, err := repo.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts[events.EventTypeEmotionSet] != 1 || counts[events.EventTypeBlinkEnd] != 3 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, 5) // 11 events
	ctx := context.Background()

	n, err := repo.Prune(ctx, 4)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 pruned, got %d", n)
	}

	rest, _ := repo.Recent(ctx, 0)
	if len(rest) != 4 || rest[0].Seq != 8 {
		t.Errorf("expected seq 8..11 to survive, got %+v", rest)
	}
}

func TestReconstructorMatchesLastState(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, 2)
	r := NewReconstructor(repo)

	state, err := r.Rebuild(context.Background(), face.Initial())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if state != (face.FaceState{Emotion: face.Happy}) {
		t.Errorf("expected {HAPPY, false}, got %s", state)
	}

	recap, err := r.Recap(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recap: %v", err)
	}
	if len(recap) != 5 {
		t.Fatalf("expected 5 recap entries, got %d", len(recap))
	}
	if recap[0].Summary != "CONTROL changed the face from Neutral to Happy" {
		t.Errorf("unexpected summary %q", recap[0].Summary)
	}
	if recap[1].Summary != "Eyes closed" || recap[2].Summary != "Eyes opened" {
		t.Errorf("unexpected blink summaries %q / %q", recap[1].Summary, recap[2].Summary)
	}
}

func TestReplayOnlyTouchesOwnedField(t *testing.T) {
	state := Replay(face.FaceState{Emotion: face.Sad, IsBlinking: true}, []events.FaceEvent{
		{Type: events.EventTypeEmotionSet, Emotion: face.Sleepy, IsBlinking: false},
	})
	if state != (face.FaceState{Emotion: face.Sleepy, IsBlinking: true}) {
		t.Errorf("emotion event changed the blink flag: %s", state)
	}
}

func TestPersisterWritesThrough(t *testing.T) {
	repo := newTestRepo(t)
	log := events.NewEventLog(10, NewPersister(repo, 0))

	log.Append(events.FaceEvent{Seq: 1, Type: events.EventTypeEmotionSet, ActorID: "CONTROL", Emotion: face.Surprised})

	got, err := repo.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Emotion != face.Surprised || got[0].ID == "" {
		t.Errorf("unexpected journal contents %+v", got)
	}
}

func TestRunRetention(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunRetention(ctx, repo, 3, 10*time.Millisecond, logger.Discard())
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rest, _ := repo.Recent(context.Background(), 0); len(rest) == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if rest, _ := repo.Recent(context.Background(), 0); len(rest) != 3 {
		t.Errorf("expected retention to keep 3 events, got %d", len(rest))
	}
}

func TestInitSQLiteFile(t *testing.T) {
	path := t.TempDir() + "/nested/journal.db"
	db, err := InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	defer db.Close()

	if err := NewSQLiteEventRepository(db).Append(context.Background(), events.FaceEvent{
		ID: "a", Seq: 1, Timestamp: time.Now(), Type: events.EventTypeBlinkStart, Emotion: face.Neutral, IsBlinking: true,
	}); err != nil {
		t.Errorf("Append on file journal: %v", err)
	}
}
