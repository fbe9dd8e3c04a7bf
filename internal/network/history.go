package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/events"
	"github.com/MRamiBalles/ParaBot/internal/infra/storage"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// HistoryHandler exposes the face event journal.
// When no repository is configured it falls back to the in-memory event log.
type HistoryHandler struct {
	repo     storage.EventRepository
	recon    *storage.Reconstructor
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler. repo may be nil.
func NewHistoryHandler(repo storage.EventRepository, el *events.EventLog, log *logger.Logger) *HistoryHandler {
	h := &HistoryHandler{
		repo:     repo,
		eventLog: el,
		logger:   log,
	}
	if repo != nil {
		h.recon = storage.NewReconstructor(repo)
	}
	return h
}

// HistoryResponse is the API response for the history endpoint.
type HistoryResponse struct {
	TotalEvents int                `json:"total_events"`
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.FaceEvent `json:"events"`
}

// HandleHistory returns recent events, oldest first.
// GET /api/face/history?type=BLINK_START&limit=50
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		jsonError(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	eventType := events.EventType(r.URL.Query().Get("type"))
	if eventType != "" && !knownType(eventType) {
		jsonError(w, "Unknown event type", http.StatusBadRequest)
		return
	}

	var (
		evts []events.FaceEvent
		err  error
	)
	switch {
	case hh.repo != nil && eventType != "":
		evts, err = hh.repo.ByType(r.Context(), eventType, limit)
	case hh.repo != nil:
		evts, err = hh.repo.Recent(r.Context(), limit)
	case hh.eventLog != nil:
		evts = fromLog(hh.eventLog, eventType, limit)
	}
	if err != nil {
		hh.logger.Error("failed to read journal", "error", err)
		jsonError(w, "Journal unavailable", http.StatusInternalServerError)
		return
	}
	if evts == nil {
		evts = []events.FaceEvent{}
	}

	jsonSuccess(w, HistoryResponse{
		TotalEvents: len(evts),
		FilteredBy:  string(eventType),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      evts,
	})
}

// HandleStats returns per-type counts.
// GET /api/face/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts := make(map[events.EventType]int64)
	if hh.repo != nil {
		var err error
		counts, err = hh.repo.CountByType(r.Context())
		if err != nil {
			hh.logger.Error("failed to count journal", "error", err)
			jsonError(w, "Journal unavailable", http.StatusInternalServerError)
			return
		}
	} else if hh.eventLog != nil {
		for _, e := range hh.eventLog.Replay() {
			counts[e.Type]++
		}
	}

	var total int64
	stats := map[string]int64{}
	for _, t := range []events.EventType{events.EventTypeEmotionSet, events.EventTypeBlinkStart, events.EventTypeBlinkEnd} {
		stats[string(t)] = counts[t]
		total += counts[t]
	}
	stats["total_events"] = total

	jsonSuccess(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// HandleRecap returns human-readable summaries of recent events.
// GET /api/face/recap?limit=20
func (hh *HistoryHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hh.recon == nil {
		jsonError(w, "Journal disabled", http.StatusNotFound)
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		jsonError(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	recap, err := hh.recon.Recap(r.Context(), limit)
	if err != nil {
		hh.logger.Error("failed to build recap", "error", err)
		jsonError(w, "Journal unavailable", http.StatusInternalServerError)
		return
	}
	if recap == nil {
		recap = []storage.RecapEntry{}
	}
	jsonSuccess(w, map[string]interface{}{"recap": recap})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/face/history", hh.HandleHistory)
	mux.HandleFunc("/api/face/stats", hh.HandleStats)
	mux.HandleFunc("/api/face/recap", hh.HandleRecap)
}

func parseLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxHistoryLimit), true
}

func knownType(t events.EventType) bool {
	switch t {
	case events.EventTypeEmotionSet, events.EventTypeBlinkStart, events.EventTypeBlinkEnd:
		return true
	}
	return false
}

// fromLog returns the newest limit events of the in-memory log, oldest first.
func fromLog(el *events.EventLog, t events.EventType, limit int) []events.FaceEvent {
	var evts []events.FaceEvent
	if t != "" {
		evts = el.GetByType(t)
	} else {
		evts = el.Replay()
	}
	if len(evts) > limit {
		evts = evts[len(evts)-limit:]
	}
	return evts
}
