// Package face defines the robot face domain: the emotion selector and the
// immutable snapshot the store publishes.
package face

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEmotion is returned when a value outside the five emotions is used.
var ErrUnknownEmotion = errors.New("unknown emotion")

// Emotion selects the expression shown by the face.
type Emotion string

const (
	Happy     Emotion = "HAPPY"
	Sad       Emotion = "SAD"
	Surprised Emotion = "SURPRISED"
	Sleepy    Emotion = "SLEEPY"
	Neutral   Emotion = "NEUTRAL"
)

// DefaultEmotion is the emotion a new face starts with.
const DefaultEmotion = Neutral

// emotionOrder is the order the controls are presented in.
var emotionOrder = []Emotion{Happy, Sad, Surprised, Sleepy, Neutral}

var labels = map[Emotion]string{
	Happy:     "Happy",
	Sad:       "Sad",
	Surprised: "Surprised",
	Sleepy:    "Sleepy",
	Neutral:   "Neutral",
}

// Emotions returns all emotions in control order.
func Emotions() []Emotion {
	out := make([]Emotion, len(emotionOrder))
	copy(out, emotionOrder)
	return out
}

// ParseEmotion converts a case-insensitive name into an Emotion.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToUpper(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
	}
	return e, nil
}

// Valid reports whether e is one of the five emotions.
func (e Emotion) Valid() bool {
	_, ok := labels[e]
	return ok
}

// Label is the user-facing control label.
func (e Emotion) Label() string {
	if l, ok := labels[e]; ok {
		return l
	}
	return string(e)
}

func (e Emotion) String() string {
	return string(e)
}

// FaceState is an immutable snapshot of the face.
// IsBlinking is true only during the brief closed-eye interval.
type FaceState struct {
	Emotion    Emotion `json:"emotion"`
	IsBlinking bool    `json:"is_blinking"`
}

// Initial returns the state a new store starts with.
func Initial() FaceState {
	return FaceState{Emotion: DefaultEmotion, IsBlinking: false}
}

// WithEmotion returns a copy with the emotion replaced.
func (s FaceState) WithEmotion(e Emotion) FaceState {
	s.Emotion = e
	return s
}

// WithBlinking returns a copy with the blink flag replaced.
func (s FaceState) WithBlinking(blinking bool) FaceState {
	s.IsBlinking = blinking
	return s
}

func (s FaceState) String() string {
	return fmt.Sprintf("{%s, %t}", s.Emotion, s.IsBlinking)
}
