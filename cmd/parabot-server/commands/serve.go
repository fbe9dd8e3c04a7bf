package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/engine"
	"github.com/MRamiBalles/ParaBot/internal/events"
	"github.com/MRamiBalles/ParaBot/internal/infra/storage"
	"github.com/MRamiBalles/ParaBot/internal/network"
	"github.com/MRamiBalles/ParaBot/internal/platform/metrics"
	"github.com/MRamiBalles/ParaBot/internal/render"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("initializing ParaBot face server", "addr", cfg.ListenAddr)
	collector := metrics.Get()

	var (
		repo      storage.EventRepository
		persister events.EventPersister
	)
	if cfg.JournalDSN != "" {
		appLogger.Info("initializing SQLite journal", "dsn", cfg.JournalDSN)
		db, err := storage.InitSQLite(cfg.JournalDSN)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()

		sqliteRepo := storage.NewSQLiteEventRepository(db)
		repo = sqliteRepo
		persister = storage.NewPersister(sqliteRepo, 0)
		go storage.RunRetention(ctx, sqliteRepo, cfg.JournalRetention, cfg.JournalPruneInterval, appLogger.Named("journal"))
	}

	eventLog := events.NewEventLog(cfg.EventLogCapacity, persister)
	eventLog.OnPersist(collector.RecordEventWrite)

	eng := engine.NewEngine(blinkSchedule(cfg), nil, eventLog, collector, appLogger.Named("engine"))
	store := eng.GetStore()

	animator := render.NewAnimator(store.Current(), time.Now())
	store.Subscribe(func(u engine.Update) {
		animator.Observe(u.State, u.At)
	})
	eng.Start(ctx)

	hub := network.NewHub(store, collector, network.HubConfig{
		BroadcastBuffer: cfg.BroadcastBuffer,
		SendBuffer:      cfg.ClientSendBuffer,
		ActionCooldown:  cfg.ActionCooldown,
	}, appLogger.Named("hub"))
	go hub.Run(ctx)

	renderOpts := render.DefaultOptions()
	renderOpts.Width, renderOpts.Height = cfg.FaceWidth, cfg.FaceHeight

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWs(hub, w, r)
	})
	network.NewControlsHandler(store, animator, renderOpts, collector, appLogger.Named("controls")).RegisterRoutes(mux)
	network.NewHistoryHandler(repo, eventLog, appLogger.Named("history")).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.HandleFunc("/metrics/prometheus", collector.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP API & WS server listening", "addr", cfg.ListenAddr)
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		appLogger.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown incomplete", "error", err)
	}
	eng.Close()

	if runErr != nil {
		appLogger.Error("server failed", "error", runErr)
	}
	return runErr
}
