package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

// ErrStoreClosed is returned by mutations issued after Close.
var ErrStoreClosed = errors.New("face store closed")

const (
	// SourceBlinkLoop tags updates produced by the blink loop.
	SourceBlinkLoop = "SYSTEM_BLINK"
	// SourceControl tags SetEmotion calls that did not name a source.
	SourceControl = "CONTROL"
)

// Update is delivered to observers for every published snapshot.
type Update struct {
	Seq      uint64
	State    face.FaceState
	Previous face.FaceState
	Source   string
	At       time.Time
}

// Observer receives updates in emission order on its own goroutine.
// It must not call Close on the store it observes.
type Observer func(Update)

// Store is the single authority for the current FaceState.
//
// Both write paths (SetEmotion and the blink loop) read-modify-publish under mu,
// so no update is lost and every observer sees the same order. Reads go through
// an atomic pointer and never block.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[face.FaceState]
	seq     uint64
	closed  bool
	subs    map[uint64]*subscription
	nextSub uint64

	schedule BlinkSchedule
	rng      *rand.Rand
	logger   *logger.Logger
	loop     *BlinkLoop
	cancel   context.CancelFunc

	closeOnce sync.Once
}

// NewStore creates a store holding {NEUTRAL, false}. rng may be nil.
// The store does not blink until Start is called, so callers should start it
// right after construction.
func NewStore(schedule BlinkSchedule, rng *rand.Rand, log *logger.Logger) *Store {
	s := &Store{
		subs:     make(map[uint64]*subscription),
		schedule: schedule,
		rng:      rng,
		logger:   log,
	}
	initial := face.Initial()
	s.current.Store(&initial)
	return s
}

// Start launches the blink loop. It stops when ctx is cancelled or on Close.
// The first blink falls within the schedule's open window measured from this
// call, not from NewStore.
// Calling Start again, or after Close, does nothing.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.loop != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loop = NewBlinkLoop(s.schedule, s.rng, s.setBlinking, s.logger)
	loop := s.loop
	s.mu.Unlock()

	go loop.Start(loopCtx)
}

// Current returns the latest snapshot.
func (s *Store) Current() face.FaceState {
	return *s.current.Load()
}

// Snapshot returns the latest snapshot with its sequence number.
func (s *Store) Snapshot() (face.FaceState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.current.Load(), s.seq
}

// SetEmotion replaces the emotion and publishes, leaving the blink flag alone.
// Setting the current emotion again still publishes.
func (s *Store) SetEmotion(e face.Emotion) error {
	return s.SetEmotionBy(SourceControl, e)
}

// SetEmotionBy is SetEmotion with the requesting source recorded on the update.
func (s *Store) SetEmotionBy(source string, e face.Emotion) error {
	if !e.Valid() {
		return fmt.Errorf("%w: %q", face.ErrUnknownEmotion, string(e))
	}
	if source == "" {
		source = SourceControl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.publishLocked(s.current.Load().WithEmotion(e), source)
	return nil
}

// setBlinking is the blink loop's only write path.
func (s *Store) setBlinking(blinking bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.publishLocked(s.current.Load().WithBlinking(blinking), SourceBlinkLoop)
	return true
}

func (s *Store) publishLocked(next face.FaceState, source string) {
	prev := *s.current.Load()
	s.current.Store(&next)
	s.seq++

	u := Update{
		Seq:      s.seq,
		State:    next,
		Previous: prev,
		Source:   source,
		At:       time.Now(),
	}
	for _, sub := range s.subs {
		sub.push(u)
	}
}

// Subscribe registers an observer for every subsequent snapshot. The snapshot in
// effect now is not delivered; call Current for that. The returned function
// unsubscribes; an observer call already running may still complete.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextSub
	s.nextSub++
	sub := newSubscription(fn)
	s.subs[id] = sub
	go sub.run()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
}

// Subscribers returns the number of registered observers.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Closed reports whether the store has been torn down.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the store down: later mutations are rejected, the blink timer is
// cancelled, and queued updates are delivered before the observers are stopped.
// No observer runs after Close returns.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		loop, cancel := s.loop, s.cancel
		subs := s.subs
		s.subs = make(map[uint64]*subscription)
		s.mu.Unlock()

		if loop != nil {
			loop.Stop()
			cancel()
			<-loop.Done()
		}
		for _, sub := range subs {
			sub.finish()
		}
		for _, sub := range subs {
			<-sub.done
		}
		s.logger.Debug("face store closed")
	})
}

// subscription delivers updates to one observer through an unbounded queue so a
// slow observer never holds up the writers.
type subscription struct {
	fn      Observer
	mu      sync.Mutex
	queue   []Update
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func newSubscription(fn Observer) *subscription {
	return &subscription{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *subscription) push(u Update) {
	s.mu.Lock()
	s.queue = append(s.queue, u)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.quit:
			s.drain()
			return
		}
	}
}

func (s *subscription) drain() {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, u := range batch {
			if s.stopped.Load() {
				return
			}
			s.fn(u)
		}
	}
}

// finish delivers what is queued, then exits.
func (s *subscription) finish() {
	s.once.Do(func() { close(s.quit) })
}

// stop exits without delivering anything further.
func (s *subscription) stop() {
	s.stopped.Store(true)
	s.finish()
}
