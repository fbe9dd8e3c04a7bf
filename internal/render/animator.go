// Package render turns face snapshots into animated frames and SVG.
package render

import (
	"math"
	"sync"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
)

const (
	// SwayPeriod is one full idle sway cycle.
	SwayPeriod = 4200 * time.Millisecond
	// DefaultSwayAmplitude is the idle sway in pixels.
	DefaultSwayAmplitude = 1.0
)

// Frame is what the renderer draws at one instant.
type Frame struct {
	Emotion    face.Emotion `json:"emotion"`
	IsBlinking bool         `json:"is_blinking"`
	Openness   float64      `json:"openness"`
	SwayY      float64      `json:"sway_y"`
}

// Animator interpolates eye openness between snapshots.
// Each new snapshot starts a tween from wherever the eyes currently are, so a
// blink that interrupts an emotion change never jumps.
type Animator struct {
	mu        sync.Mutex
	epoch     time.Time
	amplitude float64

	state  face.FaceState
	from   float64
	to     float64
	start  time.Time
	tween  time.Duration
	easing face.Easing
}

// NewAnimator starts at rest on the given snapshot.
func NewAnimator(initial face.FaceState, now time.Time) *Animator {
	open := face.TargetOpenness(initial)
	return &Animator{
		epoch:     now,
		amplitude: DefaultSwayAmplitude,
		state:     initial,
		from:      open,
		to:        open,
		start:     now,
	}
}

// SetSwayAmplitude changes the idle sway in pixels.
func (a *Animator) SetSwayAmplitude(px float64) {
	a.mu.Lock()
	a.amplitude = px
	a.mu.Unlock()
}

// Observe retargets the animation to a new snapshot.
func (a *Animator) Observe(s face.FaceState, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.opennessLocked(now)
	style := face.StyleFor(s.Emotion)

	a.state = s
	a.from = current
	a.to = face.TargetOpenness(s)
	a.start = now
	a.tween = style.Tween
	a.easing = style.Easing
}

// Frame returns the interpolated frame at now.
func (a *Animator) Frame(now time.Time) Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	phase := 2 * math.Pi * float64(now.Sub(a.epoch)%SwayPeriod) / float64(SwayPeriod)
	return Frame{
		Emotion:    a.state.Emotion,
		IsBlinking: a.state.IsBlinking,
		Openness:   a.opennessLocked(now),
		SwayY:      math.Sin(phase) * a.amplitude,
	}
}

func (a *Animator) opennessLocked(now time.Time) float64 {
	if a.tween <= 0 {
		return a.to
	}
	elapsed := now.Sub(a.start)
	if elapsed <= 0 {
		return a.from
	}
	if elapsed >= a.tween {
		return a.to
	}
	p := ease(a.easing, float64(elapsed)/float64(a.tween))
	return a.from + (a.to-a.from)*p
}

// RestFrame is the frame of a snapshot once its tween has finished.
func RestFrame(s face.FaceState) Frame {
	return Frame{
		Emotion:    s.Emotion,
		IsBlinking: s.IsBlinking,
		Openness:   face.TargetOpenness(s),
	}
}

func ease(e face.Easing, x float64) float64 {
	switch e {
	case face.EaseFastOutSlowIn:
		return cubicBezier(0.4, 0, 0.2, 1, x)
	default:
		return x
	}
}

// cubicBezier evaluates a CSS-style timing curve with end points (0,0) and (1,1).
func cubicBezier(x1, y1, x2, y2, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	bez := func(p1, p2, t float64) float64 {
		u := 1 - t
		return 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t
	}

	// x(t) is monotonic on [0,1] for valid timing curves, so bisection converges.
	lo, hi := 0.0, 1.0
	t := x
	for i := 0; i < 40; i++ {
		cx := bez(x1, x2, t)
		if math.Abs(cx-x) < 1e-7 {
			break
		}
		if cx < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return bez(y1, y2, t)
}
