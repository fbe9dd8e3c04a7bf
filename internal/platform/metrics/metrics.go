// Package metrics provides observability for the face server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers runtime metrics.
type Collector struct {
	// Face metrics
	SnapshotsPublished int64
	Blinks             int64
	BlinkOpenSum       int64 // nanoseconds the eyes stayed open before each blink
	BlinkOpenMax       int64
	EmotionSets        int64
	LastSnapshotTime   time.Time
	emotionCounts      map[string]int64

	// Journal metrics
	EventsWritten    int64
	EventWriteLatSum int64 // nanoseconds
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Control metrics
	ControlRequests int64
	ControlRejected int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		StartTime:     time.Now(),
		emotionCounts: make(map[string]int64),
	}
}

// Global collector instance
var collector = NewCollector()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordSnapshot records one published snapshot.
func (c *Collector) RecordSnapshot() {
	atomic.AddInt64(&c.SnapshotsPublished, 1)

	c.mu.Lock()
	c.LastSnapshotTime = time.Now()
	c.mu.Unlock()
}

// RecordBlink records a blink and how long the eyes were open before it.
func (c *Collector) RecordBlink(openFor time.Duration) {
	atomic.AddInt64(&c.Blinks, 1)
	if openFor > 0 {
		atomic.AddInt64(&c.BlinkOpenSum, int64(openFor))
		storeMax(&c.BlinkOpenMax, int64(openFor))
	}
}

// RecordEmotionSet records a SetEmotion call that was published.
func (c *Collector) RecordEmotionSet(emotion string) {
	atomic.AddInt64(&c.EmotionSets, 1)

	c.mu.Lock()
	c.emotionCounts[emotion]++
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the journal.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordControlRequest records a REST emotion request.
func (c *Collector) RecordControlRequest(accepted bool) {
	atomic.AddInt64(&c.ControlRequests, 1)
	if !accepted {
		atomic.AddInt64(&c.ControlRejected, 1)
	}
}

// EmotionCounts returns a copy of the per-emotion SetEmotion counts.
func (c *Collector) EmotionCounts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int64, len(c.emotionCounts))
	for k, v := range c.emotionCounts {
		out[k] = v
	}
	return out
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastSnapshot := c.LastSnapshotTime
	c.mu.RUnlock()

	blinks := atomic.LoadInt64(&c.Blinks)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var blinkAvg, eventAvg float64
	if blinks > 0 {
		blinkAvg = float64(atomic.LoadInt64(&c.BlinkOpenSum)) / float64(blinks) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	last := ""
	if !lastSnapshot.IsZero() {
		last = lastSnapshot.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"face": map[string]interface{}{
			"snapshots_published": atomic.LoadInt64(&c.SnapshotsPublished),
			"blinks":              blinks,
			"avg_open_ms":         blinkAvg,
			"max_open_ms":         float64(atomic.LoadInt64(&c.BlinkOpenMax)) / 1e6,
			"emotion_sets":        atomic.LoadInt64(&c.EmotionSets),
			"emotion_counts":      c.EmotionCounts(),
			"last_snapshot":       last,
		},

		"journal": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"controls": map[string]interface{}{
			"requests": atomic.LoadInt64(&c.ControlRequests),
			"rejected": atomic.LoadInt64(&c.ControlRejected),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP parabot_snapshots_published_total Face snapshots published\n")
		fmt.Fprintf(w, "# TYPE parabot_snapshots_published_total counter\n")
		fmt.Fprintf(w, "parabot_snapshots_published_total %d\n\n", atomic.LoadInt64(&c.SnapshotsPublished))

		fmt.Fprintf(w, "# HELP parabot_blinks_total Completed blink starts\n")
		fmt.Fprintf(w, "# TYPE parabot_blinks_total counter\n")
		fmt.Fprintf(w, "parabot_blinks_total %d\n\n", atomic.LoadInt64(&c.Blinks))

		fmt.Fprintf(w, "# HELP parabot_blink_open_max_ms Longest open interval before a blink\n")
		fmt.Fprintf(w, "# TYPE parabot_blink_open_max_ms gauge\n")
		fmt.Fprintf(w, "parabot_blink_open_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.BlinkOpenMax))/1e6)

		fmt.Fprintf(w, "# HELP parabot_emotion_sets_total SetEmotion calls by emotion\n")
		fmt.Fprintf(w, "# TYPE parabot_emotion_sets_total counter\n")
		counts := c.EmotionCounts()
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "parabot_emotion_sets_total{emotion=%q} %d\n", name, counts[name])
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP parabot_journal_write_errors_total Journal write errors\n")
		fmt.Fprintf(w, "# TYPE parabot_journal_write_errors_total counter\n")
		fmt.Fprintf(w, "parabot_journal_write_errors_total %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP parabot_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE parabot_ws_connections gauge\n")
		fmt.Fprintf(w, "parabot_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP parabot_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE parabot_ws_messages_total counter\n")
		fmt.Fprintf(w, "parabot_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "parabot_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}

// Handler returns the JSON handler of the global collector.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// PrometheusHandler returns the Prometheus handler of the global collector.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}
