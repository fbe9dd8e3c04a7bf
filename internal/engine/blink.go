package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

const (
	// DefaultBlinkMinDelay is the shortest time the eyes stay open.
	DefaultBlinkMinDelay = 800 * time.Millisecond
	// DefaultBlinkJitter is the width of the random window added to the min delay.
	DefaultBlinkJitter = 1800 * time.Millisecond
	// DefaultBlinkClosed is how long the eyes stay shut.
	DefaultBlinkClosed = 120 * time.Millisecond
)

// BlinkSchedule defines the timing of the blink cycle.
// Open intervals are drawn uniformly from [MinDelay, MinDelay+Jitter).
type BlinkSchedule struct {
	MinDelay time.Duration
	Jitter   time.Duration
	Closed   time.Duration
}

// DefaultBlinkSchedule returns the 800 to 2600 ms open / 120 ms closed cycle.
func DefaultBlinkSchedule() BlinkSchedule {
	return BlinkSchedule{
		MinDelay: DefaultBlinkMinDelay,
		Jitter:   DefaultBlinkJitter,
		Closed:   DefaultBlinkClosed,
	}
}

// Validate rejects schedules that would spin or never reopen the eyes.
func (s BlinkSchedule) Validate() error {
	if s.MinDelay < 0 || s.Jitter < 0 {
		return errors.New("blink schedule: negative open delay")
	}
	if s.MinDelay+s.Jitter <= 0 {
		return errors.New("blink schedule: open interval must be positive")
	}
	if s.Closed <= 0 {
		return errors.New("blink schedule: closed duration must be positive")
	}
	return nil
}

// MaxDelay is the exclusive upper bound of an open interval.
func (s BlinkSchedule) MaxDelay() time.Duration {
	return s.MinDelay + s.Jitter
}

// NextDelay draws the next open interval.
func (s BlinkSchedule) NextDelay(rng *rand.Rand) time.Duration {
	if s.Jitter <= 0 {
		return s.MinDelay
	}
	return s.MinDelay + time.Duration(rng.Int63n(int64(s.Jitter)))
}

// BlinkLoop drives the AWAKE/CLOSED cycle on a single timer.
// It never looks at the emotion; it only asks its owner to flip the blink flag.
type BlinkLoop struct {
	schedule BlinkSchedule
	rng      *rand.Rand
	toggle   func(blinking bool) bool
	logger   *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewBlinkLoop creates a loop. toggle returns false once the owner is disposed,
// which ends the loop.
func NewBlinkLoop(schedule BlinkSchedule, rng *rand.Rand, toggle func(bool) bool, log *logger.Logger) *BlinkLoop {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BlinkLoop{
		schedule: schedule,
		rng:      rng,
		toggle:   toggle,
		logger:   log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the blink cycle until ctx is cancelled, Stop is called, or the
// owner refuses a toggle. Call in a goroutine.
func (b *BlinkLoop) Start(ctx context.Context) {
	defer close(b.done)
	b.logger.Debug("blink loop started",
		"min_delay", b.schedule.MinDelay, "jitter", b.schedule.Jitter, "closed", b.schedule.Closed)

	timer := time.NewTimer(b.schedule.NextDelay(b.rng))
	defer timer.Stop()

	closed := false
	for {
		select {
		case <-ctx.Done():
			// Leave the eyes open if the owner is still alive.
			if closed {
				b.toggle(false)
			}
			b.logger.Debug("blink loop stopped by context")
			return
		case <-b.stopChan:
			b.logger.Debug("blink loop stopped")
			return
		case <-timer.C:
			closed = !closed
			if !b.toggle(closed) {
				b.logger.Debug("blink loop owner disposed")
				return
			}
			if closed {
				timer.Reset(b.schedule.Closed)
			} else {
				timer.Reset(b.schedule.NextDelay(b.rng))
			}
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (b *BlinkLoop) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
}

// Done is closed once Start has returned.
func (b *BlinkLoop) Done() <-chan struct{} {
	return b.done
}
