// Package main - face-agitator
// Load generator: many concurrent WebSocket clients spamming SET_EMOTION
// while checking that every client sees snapshots in sequence order.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/network"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	InvalidRatio   float64
	ResultsPath    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	OutOfOrder       int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	var config Config

	cmd := &cobra.Command{
		Use:          "face-agitator",
		Short:        "Stress the face server with concurrent SET_EMOTION clients",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger().Named("agitator")
			log.Info("starting agitator",
				"server", config.ServerURL, "clients", config.NumClients,
				"interval", config.ActionInterval, "duration", config.TestDuration)

			ctx, cancel := context.WithTimeout(cmd.Context(), config.TestDuration)
			defer cancel()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			stats := runStressTest(ctx, config, log)
			return printResults(stats, config)
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	f.IntVar(&config.NumClients, "clients", 50, "number of concurrent clients")
	f.DurationVar(&config.ActionInterval, "interval", 100*time.Millisecond, "action interval per client")
	f.DurationVar(&config.TestDuration, "duration", 60*time.Second, "test duration")
	f.Float64Var(&config.InvalidRatio, "invalid-ratio", 0.05, "fraction of actions carrying an unknown emotion")
	f.StringVar(&config.ResultsPath, "results", "stress_test_results.json", `results file ("" skips it)`)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStressTest(ctx context.Context, config Config, log *logger.Logger) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats, log)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	log.Info("all clients started", "clients", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Info("progress",
					"sent", atomic.LoadInt64(&stats.MessagesSent),
					"received", atomic.LoadInt64(&stats.MessagesReceived),
					"out_of_order", atomic.LoadInt64(&stats.OutOfOrder),
					"errors", atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats, log *logger.Logger) {
	source := fmt.Sprintf("AGITATOR_%03d", clientID)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Warn("connection failed", "client", clientID, "error", err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Receiver: every FACE_STATE must carry a higher seq than the last one.
	go func() {
		var lastSeq uint64
		first := true
		for {
			var msg network.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if !first && msg.Seq <= lastSeq {
				atomic.AddInt64(&stats.OutOfOrder, 1)
			}
			first = false
			lastSeq = msg.Seq
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := generateRandomAction(rng, source, config.InvalidRatio)
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func generateRandomAction(rng *rand.Rand, source string, invalidRatio float64) network.ClientAction {
	emotions := face.Emotions()
	emotion := string(emotions[rng.Intn(len(emotions))])
	if rng.Float64() < invalidRatio {
		emotion = "ANGRY"
	}
	return network.ClientAction{
		Type:    network.MsgTypeSetEmotion,
		Emotion: emotion,
		Source:  source,
	}
}

func printResults(stats *Stats, config Config) error {
	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	ooo := atomic.LoadInt64(&stats.OutOfOrder)
	throughput := float64(sent) / config.TestDuration.Seconds()

	fmt.Println("=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")
	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Out of Order:      %d\n", ooo)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		fmt.Printf("\nLatency:\n  Min: %v\n  Avg: %v\n  Max: %v\n", lo, total/time.Duration(len(stats.Latencies)), hi)
	}
	stats.mu.Unlock()

	fmt.Println("-----------------------------------------")
	var verdict error
	switch {
	case ooo > 0:
		fmt.Println("TEST FAILED: clients saw snapshots out of order")
		verdict = fmt.Errorf("%d out-of-order snapshots", ooo)
	case float64(errs)/float64(sent+1) >= 0.05:
		fmt.Println("TEST FAILED: High error rate")
		verdict = fmt.Errorf("error rate too high: %d errors", errs)
	case errs > 0:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST PASSED: System handled the load")
	}

	if config.ResultsPath != "" {
		results := map[string]interface{}{
			"messages_sent":      sent,
			"messages_received":  recv,
			"out_of_order":       ooo,
			"errors":             errs,
			"throughput_per_sec": throughput,
			"config": map[string]interface{}{
				"clients":  config.NumClients,
				"interval": config.ActionInterval.String(),
				"duration": config.TestDuration.String(),
			},
		}
		jsonData, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		fmt.Printf("Results saved to %s\n", config.ResultsPath)
	}
	return verdict
}
