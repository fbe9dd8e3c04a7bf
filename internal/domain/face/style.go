package face

import "time"

// EyeShape selects how an eye is drawn.
type EyeShape string

const (
	// ShapeGlossy is a rounded rectangle with a highlight dot and outline.
	ShapeGlossy EyeShape = "GLOSSY"
	// ShapeBase is a soft rounded rectangle over a radial aura.
	ShapeBase EyeShape = "BASE"
)

// Easing names the interpolation curve used when the eyes open or close.
type Easing string

const (
	EaseLinear        Easing = "LINEAR"
	EaseFastOutSlowIn Easing = "FAST_OUT_SLOW_IN"
)

// EyeStyle holds the cosmetic parameters for one emotion.
type EyeStyle struct {
	Shape       EyeShape
	RestingOpen float64 // openness when not blinking, 0..1
	Tween       time.Duration
	Easing      Easing
	Aspect      float64 // width / height of the eye cell
	Spacing     float64 // gap between eyes as a fraction of the row width
	Gradient    []string
	Aura        string // empty when the shape has no aura
}

var (
	glossyGradient = []string{"#FFF3E6", "#FFD49A", "#FFB460", "#F5892E"}
	baseGradient   = []string{"#FFF0E0", "#FFC37A", "#FFA64F", "#F27A20"}
	sadGradient    = []string{"#E6F0FF", "#A9C8F5", "#6F9BE0", "#3E6CC2"}
	sleepyGradient = []string{"#F2E9FF", "#CDB8F0", "#A58BDB", "#7A5FC0"}
)

var styles = map[Emotion]EyeStyle{
	Happy: {
		Shape:       ShapeGlossy,
		RestingOpen: 1.0,
		Tween:       160 * time.Millisecond,
		Easing:      EaseFastOutSlowIn,
		Aspect:      1.05,
		Spacing:     0.09,
		Gradient:    glossyGradient,
	},
	Surprised: {
		Shape:       ShapeBase,
		RestingOpen: 1.0,
		Tween:       200 * time.Millisecond,
		Easing:      EaseLinear,
		Aspect:      0.8,
		Spacing:     0.07,
		Gradient:    baseGradient,
		Aura:        "#FFA54F",
	},
	Neutral: {
		Shape:       ShapeBase,
		RestingOpen: 0.9,
		Tween:       200 * time.Millisecond,
		Easing:      EaseLinear,
		Aspect:      0.95,
		Spacing:     0.07,
		Gradient:    baseGradient,
		Aura:        "#FFA54F",
	},
	Sad: {
		Shape:       ShapeBase,
		RestingOpen: 0.7,
		Tween:       200 * time.Millisecond,
		Easing:      EaseLinear,
		Aspect:      0.95,
		Spacing:     0.07,
		Gradient:    sadGradient,
		Aura:        "#6F9BE0",
	},
	Sleepy: {
		Shape:       ShapeBase,
		RestingOpen: 0.45,
		Tween:       200 * time.Millisecond,
		Easing:      EaseLinear,
		Aspect:      0.95,
		Spacing:     0.07,
		Gradient:    sleepyGradient,
		Aura:        "#A58BDB",
	},
}

// StyleFor returns the eye style of an emotion. Unknown values fall back to Neutral.
func StyleFor(e Emotion) EyeStyle {
	if s, ok := styles[e]; ok {
		return s
	}
	return styles[Neutral]
}

// TargetOpenness is the openness the eyes move toward for a given snapshot.
func TargetOpenness(s FaceState) float64 {
	if s.IsBlinking {
		return 0
	}
	return StyleFor(s.Emotion).RestingOpen
}
