// Package main - scenario-runner
// Runs the live blink scenario and exits non-zero if any check fails.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/engine"
	"github.com/MRamiBalles/ParaBot/internal/platform/config"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
	"github.com/MRamiBalles/ParaBot/test"
)

func main() {
	var (
		timeout    time.Duration
		journalDSN string
		schedule   = engine.DefaultBlinkSchedule()
	)

	cmd := &cobra.Command{
		Use:          "scenario-runner",
		Short:        "Run the live face scenario against a real store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := schedule.Validate(); err != nil {
				return err
			}
			log := logger.NewLogger().Named("scenario")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			scenario := test.NewBlinkScenario(schedule, journalDSN, log)
			if err := scenario.RunTest(ctx); err != nil {
				return err
			}

			passed, failed := 0, 0
			for _, r := range scenario.GetResults() {
				if r.Passed {
					passed++
				} else {
					failed++
				}
			}

			fmt.Println(strings.Repeat("=", 60))
			fmt.Println("SCENARIO SUMMARY")
			fmt.Println(strings.Repeat("=", 60))
			fmt.Printf("   Passed: %d\n", passed)
			fmt.Printf("   Failed: %d\n", failed)

			if failed > 0 {
				return fmt.Errorf("%d scenario checks failed", failed)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	f.StringVar(&journalDSN, "journal-dsn", "file:scenario?mode=memory&cache=shared", "SQLite DSN for the journal")
	f.DurationVar(&schedule.MinDelay, "blink-min", config.DefaultConfig().BlinkMinDelay, "shortest open-eye interval")
	f.DurationVar(&schedule.Jitter, "blink-jitter", config.DefaultConfig().BlinkJitter, "random window added to --blink-min")
	f.DurationVar(&schedule.Closed, "blink-closed", config.DefaultConfig().BlinkClosed, "how long a blink keeps the eyes shut")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
