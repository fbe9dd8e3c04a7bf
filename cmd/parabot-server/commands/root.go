package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/engine"
	"github.com/MRamiBalles/ParaBot/internal/platform/config"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

var (
	cfg       *config.Config
	appLogger *logger.Logger

	listenAddr       string
	logLevel         string
	logJSON          bool
	lowResource      bool
	blinkMin         time.Duration
	blinkJitter      time.Duration
	blinkClosed      time.Duration
	journalDSN       string
	journalRetention int
	actionCooldown   time.Duration
)

// Execute runs the root command. With no subcommand it serves.
func Execute() error {
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:          "parabot-server",
		Short:        "Animated robot face server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base := config.DefaultConfig()
			if lowResource {
				base = config.LowResourceConfig()
			}
			c, err := config.FromEnv(base)
			if err != nil {
				return err
			}
			applyFlags(cmd, c)
			if err := c.Validate(); err != nil {
				return err
			}
			cfg = c
			appLogger = logger.New(logger.Options{Name: "parabot", Level: c.LogLevel, JSON: c.LogJSON})
			return nil
		},
		RunE: runServe,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&logJSON, "log-json", false, "emit JSON log lines")
	pf.BoolVar(&lowResource, "low-resource", false, "start from the low-resource preset")

	f := root.Flags()
	f.StringVar(&listenAddr, "addr", defaults.ListenAddr, "HTTP listen address")
	f.DurationVar(&blinkMin, "blink-min", defaults.BlinkMinDelay, "shortest open-eye interval")
	f.DurationVar(&blinkJitter, "blink-jitter", defaults.BlinkJitter, "random window added to --blink-min")
	f.DurationVar(&blinkClosed, "blink-closed", defaults.BlinkClosed, "how long a blink keeps the eyes shut")
	f.StringVar(&journalDSN, "journal-dsn", defaults.JournalDSN, `SQLite DSN for the event journal ("" disables it)`)
	f.DurationVar(&actionCooldown, "action-cooldown", defaults.ActionCooldown, "minimum time between actions from one WebSocket client")
	f.IntVar(&journalRetention, "journal-retention", defaults.JournalRetention, "journal rows kept by the pruner (0 keeps all)")

	root.AddCommand(renderCmd())
	return root.Execute()
}

// applyFlags lets explicit flags win over environment and preset values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("addr") {
		c.ListenAddr = listenAddr
	}
	if changed("log-level") {
		c.LogLevel = logLevel
	}
	if changed("log-json") {
		c.LogJSON = logJSON
	}
	if changed("blink-min") {
		c.BlinkMinDelay = blinkMin
	}
	if changed("blink-jitter") {
		c.BlinkJitter = blinkJitter
	}
	if changed("blink-closed") {
		c.BlinkClosed = blinkClosed
	}
	if changed("journal-dsn") {
		c.JournalDSN = journalDSN
	}
	if changed("journal-retention") {
		c.JournalRetention = journalRetention
	}
	if changed("action-cooldown") {
		c.ActionCooldown = actionCooldown
	}
}

func blinkSchedule(c *config.Config) engine.BlinkSchedule {
	return engine.BlinkSchedule{
		MinDelay: c.BlinkMinDelay,
		Jitter:   c.BlinkJitter,
		Closed:   c.BlinkClosed,
	}
}
