package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/domain"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/ports"
	"github.com/go-chi/chi/v5"
)

const maxAudioBody = 16 << 20

type RecordingHandler struct {
	recordings ports.RecordingService
	decode     *stations.S1DecodeAudio
	log        *logger.ZapLogger
}

func NewRecordingHandler(
	recordings ports.RecordingService,
	decode *stations.S1DecodeAudio,
	log *logger.ZapLogger,
) *RecordingHandler {
	return &RecordingHandler{
		recordings: recordings,
		decode:     decode,
		log:        log,
	}
}

// POST /recording/start
func (h *RecordingHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordings.StartSession(r.Context())
	if errors.Is(err, domain.ErrAlreadyRecording) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":           false,
			"error":        "Recording already in progress",
			"recording_id": id,
		})
		return
	}
	if err != nil {
		h.fail(w, "recording start failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"recording_id": id,
	})
}

// POST /recording/stop
func (h *RecordingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sum, err := h.recordings.StopSession(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoActiveRecording):
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":    false,
			"error": "No active recording",
		})
		return
	case errors.Is(err, domain.ErrEncodingFailure):
		// the session is completed, only its file is missing
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":           false,
			"recording_id": sum.ID,
			"error":        err.Error(),
		})
		return
	case err != nil:
		h.fail(w, "recording stop failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"recording_id": sum.ID,
	})
}

// POST /audio
func (h *RecordingHandler) Audio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Audio string `json:"audio"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "invalid json: " + err.Error(),
		})
		return
	}

	pcm, err := h.decode.Run(req.Audio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	if _, err := h.recordings.ReceiveAudio(r.Context(), pcm); err != nil {
		h.fail(w, "audio append failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET /recordings
func (h *RecordingHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recordings.ListSessions())
}

// GET /recording/{id}
func (h *RecordingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sum, err := h.recordings.GetSession(id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "Recording not found",
		})
		return
	}
	if err != nil {
		h.fail(w, "recording fetch failed", err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func (h *RecordingHandler) fail(w http.ResponseWriter, msg string, err error) {
	h.log.Log(logger.LogEntry{
		Level:   "error",
		Message: msg,
		Error:   err,
	})
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok":    false,
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
