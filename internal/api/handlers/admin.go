package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/avickers/ttsgate/internal/queue"
	"github.com/avickers/ttsgate/internal/tts"
	"github.com/avickers/ttsgate/internal/usage"
)

type AdminHandler struct {
	queueClient *queue.Client
	usageSvc    *usage.Service
}

func NewAdminHandler(qc *queue.Client, us *usage.Service) *AdminHandler {
	return &AdminHandler{queueClient: qc, usageSvc: us}
}

type prewarmItem struct {
	Text            string  `json:"text"`
	Mode            string  `json:"mode"`
	Voice           string  `json:"voice"`
	SpeakingRate    float64 `json:"speaking_rate,omitempty"`
	PreferredFormat string  `json:"preferred_format,omitempty"`
}

type prewarmRequest struct {
	Items []prewarmItem `json:"items"`
}

// Prewarm handles POST /admin/prewarm: one queued task per item, replayed
// by the worker through the regular dispatcher so results land in the cache.
func (h *AdminHandler) Prewarm(w http.ResponseWriter, r *http.Request) {
	if h.queueClient == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue not configured"})
		return
	}

	var req prewarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items required"})
		return
	}

	jobIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if _, err := tts.ParseMode(item.Mode); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		jobID := uuid.NewString()
		err := h.queueClient.EnqueueCachePrewarm(queue.CachePrewarmPayload{
			JobID:           jobID,
			Text:            item.Text,
			Mode:            item.Mode,
			Voice:           item.Voice,
			SpeakingRate:    item.SpeakingRate,
			PreferredFormat: item.PreferredFormat,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue failed"})
			return
		}
		jobIDs = append(jobIDs, jobID)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"job_ids": jobIDs})
}

// Usage handles GET /admin/usage?since=24h.
func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.usageSvc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "usage tracking not configured"})
		return
	}

	window := 24 * time.Hour
	if s := r.URL.Query().Get("since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be a duration like 24h"})
			return
		}
		window = d
	}

	since := time.Now().Add(-window)
	summary, err := h.usageSvc.Summary(r.Context(), since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"since": since.Format(time.RFC3339),
		"modes": summary,
	})
}
