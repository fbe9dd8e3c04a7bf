package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/engine"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
	"github.com/MRamiBalles/ParaBot/internal/platform/metrics"
	"github.com/MRamiBalles/ParaBot/internal/render"
)

// maxRenderSize caps the ?width= and ?height= of /face.svg.
const maxRenderSize = 4096

// ControlsHandler serves the five emotion controls and the current face.
type ControlsHandler struct {
	store    *engine.Store
	animator *render.Animator
	render   render.Options
	metrics  *metrics.Collector
	logger   *logger.Logger
}

// NewControlsHandler creates the REST controls. animator may be nil, in which
// case /face.svg draws the resting frame of the current snapshot.
func NewControlsHandler(store *engine.Store, animator *render.Animator, opts render.Options, collector *metrics.Collector, log *logger.Logger) *ControlsHandler {
	if collector == nil {
		collector = metrics.Get()
	}
	return &ControlsHandler{
		store:    store,
		animator: animator,
		render:   opts,
		metrics:  collector,
		logger:   log,
	}
}

// StateResponse is a snapshot with its sequence number.
type StateResponse struct {
	Seq   uint64         `json:"seq"`
	State face.FaceState `json:"state"`
}

// EmotionRequest is the payload for switching the emotion.
type EmotionRequest struct {
	Emotion string `json:"emotion"`
	Source  string `json:"source,omitempty"`
}

// Control is one button of the control row.
type Control struct {
	Label   string       `json:"label"`
	Emotion face.Emotion `json:"emotion"`
}

// HandleState returns the current snapshot.
// GET /api/face/state
func (ch *ControlsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state, seq := ch.store.Snapshot()
	jsonSuccess(w, StateResponse{Seq: seq, State: state})
}

// HandleEmotion switches the emotion.
// POST /api/face/emotion
func (ch *ControlsHandler) HandleEmotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EmotionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		ch.metrics.RecordControlRequest(false)
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	e, err := face.ParseEmotion(req.Emotion)
	if err != nil {
		ch.metrics.RecordControlRequest(false)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	source := req.Source
	if source == "" {
		source = engine.SourceControl
	}
	if err := ch.store.SetEmotionBy(source, e); err != nil {
		ch.metrics.RecordControlRequest(false)
		if errors.Is(err, engine.ErrStoreClosed) {
			jsonError(w, "Face is shutting down", http.StatusServiceUnavailable)
			return
		}
		ch.logger.Error("failed to set emotion", "error", err)
		jsonError(w, "Internal error", http.StatusInternalServerError)
		return
	}

	ch.metrics.RecordControlRequest(true)
	ch.logger.Event("CONTROL_EMOTION", source, string(e))

	state, seq := ch.store.Snapshot()
	jsonSuccess(w, StateResponse{Seq: seq, State: state})
}

// HandleControls lists the control row in display order.
// GET /api/face/controls
func (ch *ControlsHandler) HandleControls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	emotions := face.Emotions()
	controls := make([]Control, 0, len(emotions))
	for _, e := range emotions {
		controls = append(controls, Control{Label: e.Label(), Emotion: e})
	}
	jsonSuccess(w, map[string]interface{}{"controls": controls})
}

// HandleSVG draws the current frame.
// GET /face.svg?width=W&height=H
func (ch *ControlsHandler) HandleSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := ch.render
	for _, dim := range []struct {
		key string
		dst *float64
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
	} {
		v := r.URL.Query().Get(dim.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || !(n > 0 && n <= maxRenderSize) {
			jsonError(w, "Invalid "+dim.key, http.StatusBadRequest)
			return
		}
		*dim.dst = n
	}

	var frame render.Frame
	if ch.animator != nil {
		frame = ch.animator.Frame(time.Now())
	} else {
		frame = render.RestFrame(ch.store.Current())
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.RenderSVG(w, frame, opts); err != nil {
		ch.logger.Warn("failed to render face", "error", err)
	}
}

// RegisterRoutes sets up the controls API routes.
func (ch *ControlsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/face/state", ch.HandleState)
	mux.HandleFunc("/api/face/emotion", ch.HandleEmotion)
	mux.HandleFunc("/api/face/controls", ch.HandleControls)
	mux.HandleFunc("/face.svg", ch.HandleSVG)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
