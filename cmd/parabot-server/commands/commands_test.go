package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/platform/config"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

func TestRenderCommandStdout(t *testing.T) {
	cfg = config.DefaultConfig()
	appLogger = logger.Discard()

	cmd := renderCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--emotion", "happy", "--blink", "--width", "200"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg := out.String()
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, `id="eyes-HAPPY"`) {
		t.Errorf("unexpected output:\n%s", svg)
	}
	if !strings.Contains(svg, `width="200.00"`) {
		t.Errorf("width flag ignored:\n%s", svg)
	}
}

func TestRenderCommandFile(t *testing.T) {
	cfg = config.DefaultConfig()
	appLogger = logger.Discard()

	path := filepath.Join(t.TempDir(), "face.svg")
	cmd := renderCmd()
	cmd.SetArgs([]string{"--emotion", "SLEEPY", "--out", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "eyes-SLEEPY") {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestRenderCommandRejectsUnknownEmotion(t *testing.T) {
	cfg = config.DefaultConfig()
	appLogger = logger.Discard()

	cmd := renderCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--emotion", "ANGRY"})
	if err := cmd.Execute(); err == nil {
		t.Errorf("expected an error for an unknown emotion")
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVar(&listenAddr, "addr", ":8080", "")
	cmd.Flags().DurationVar(&blinkClosed, "blink-closed", 120*time.Millisecond, "")
	if err := cmd.Flags().Parse([]string{"--blink-closed", "90ms"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	c := config.DefaultConfig()
	c.ListenAddr = ":9999"
	applyFlags(cmd, c)

	if c.ListenAddr != ":9999" {
		t.Errorf("unchanged flag overwrote config: %s", c.ListenAddr)
	}
	if c.BlinkClosed != 90*time.Millisecond {
		t.Errorf("changed flag not applied: %v", c.BlinkClosed)
	}
}

func TestRenderCommandRejectsNonFiniteSize(t *testing.T) {
	cfg = config.DefaultConfig()
	appLogger = logger.Discard()

	for _, args := range [][]string{
		{"--width", "NaN"},
		{"--height", "Inf"},
	} {
		cmd := renderCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Errorf("%v: expected an error", args)
		}
		if strings.Contains(out.String(), "NaN") || strings.Contains(out.String(), "Inf") {
			t.Errorf("%v: bad size leaked into output:\n%s", args, out.String())
		}
	}
}
