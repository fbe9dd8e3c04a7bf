package face

import (
	"errors"
	"testing"
	"time"
)

func TestParseEmotion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Emotion
		wantErr bool
	}{
		{name: "upper case", input: "HAPPY", want: Happy},
		{name: "label case", input: "Sleepy", want: Sleepy},
		{name: "padded lower case", input: "  surprised ", want: Surprised},
		{name: "empty", input: "", wantErr: true},
		{name: "angry is not an emotion here", input: "ANGRY", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmotion(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEmotion) {
					t.Fatalf("expected ErrUnknownEmotion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEmotionsControlOrder(t *testing.T) {
	want := []string{"Happy", "Sad", "Surprised", "Sleepy", "Neutral"}
	got := Emotions()
	if len(got) != len(want) {
		t.Fatalf("expected %d emotions, got %d", len(want), len(got))
	}
	for i, e := range got {
		if e.Label() != want[i] {
			t.Errorf("control %d: expected %s, got %s", i, want[i], e.Label())
		}
	}

	// Callers must not be able to reorder the package's list.
	got[0] = Sad
	if Emotions()[0] != Happy {
		t.Errorf("Emotions() leaked its backing slice")
	}
}

func TestInitialState(t *testing.T) {
	s := Initial()
	if s.Emotion != Neutral || s.IsBlinking {
		t.Errorf("expected {NEUTRAL, false}, got %s", s)
	}
}

func TestWithFieldsAreIndependent(t *testing.T) {
	s := Initial().WithBlinking(true)
	s2 := s.WithEmotion(Happy)

	if !s2.IsBlinking {
		t.Errorf("WithEmotion must keep the blink flag")
	}
	if s.Emotion != Neutral {
		t.Errorf("WithEmotion must not mutate the receiver")
	}
	if s2.WithBlinking(false).Emotion != Happy {
		t.Errorf("WithBlinking must keep the emotion")
	}
}

func TestTargetOpenness(t *testing.T) {
	for _, e := range Emotions() {
		if got := TargetOpenness(FaceState{Emotion: e, IsBlinking: true}); got != 0 {
			t.Errorf("%s blinking: expected 0, got %v", e, got)
		}
		open := TargetOpenness(FaceState{Emotion: e})
		if open <= 0 || open > 1 {
			t.Errorf("%s resting openness out of range: %v", e, open)
		}
	}

	if StyleFor(Happy).Shape != ShapeGlossy {
		t.Errorf("happy eyes should be glossy")
	}
	if StyleFor(Emotion("???")).RestingOpen != StyleFor(Neutral).RestingOpen {
		t.Errorf("unknown emotion should fall back to neutral style")
	}
}

func TestHappyAndNeutralStyles(t *testing.T) {
	happy := StyleFor(Happy)
	if happy.RestingOpen != 1.0 || happy.Tween != 160*time.Millisecond || happy.Easing != EaseFastOutSlowIn || happy.Aspect != 1.05 {
		t.Errorf("unexpected happy style %+v", happy)
	}

	neutral := StyleFor(Neutral)
	if neutral.Shape != ShapeBase || neutral.RestingOpen != 0.9 || neutral.Tween != 200*time.Millisecond || neutral.Aspect != 0.95 {
		t.Errorf("unexpected neutral style %+v", neutral)
	}
	if neutral.Aura == "" {
		t.Errorf("neutral eyes should carry an aura")
	}
}
