package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/avickers/ttsgate/internal/tts"
)

type TTSHandler struct {
	dispatcher *tts.Dispatcher
}

func NewTTSHandler(d *tts.Dispatcher) *TTSHandler {
	return &TTSHandler{dispatcher: d}
}

// Synthesize handles GET /tts. Query: text, mode, lang (the voice),
// speaking_rate, max_length, preferred_format. Success is raw audio bytes
// with the backend's content type.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	text := q.Get("text")
	if text == "" {
		writeBadQuery(w, "text is required")
		return
	}

	mode, err := tts.ParseMode(q.Get("mode"))
	if err != nil {
		writeBadQuery(w, err.Error())
		return
	}

	req := tts.SynthesisRequest{
		Text:            text,
		Mode:            mode,
		Voice:           q.Get("lang"),
		PreferredFormat: q.Get("preferred_format"),
	}

	if v := q.Get("speaking_rate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeBadQuery(w, "speaking_rate must be a number")
			return
		}
		req.SpeakingRate = rate
	}

	if v := q.Get("max_length"); v != "" {
		maxLength, err := strconv.Atoi(v)
		if err != nil {
			writeBadQuery(w, "max_length must be an integer")
			return
		}
		req.MaxLengthSeconds = maxLength
	}

	res, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(res.Audio)
}

// Voices handles GET /voices. raw=true returns provider-native records.
func (h *TTSHandler) Voices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := tts.ParseMode(q.Get("mode"))
	if err != nil {
		writeBadQuery(w, err.Error())
		return
	}

	raw := false
	if v := q.Get("raw"); v != "" {
		raw, err = strconv.ParseBool(v)
		if err != nil {
			writeBadQuery(w, "raw must be a boolean")
			return
		}
	}

	voices, err := h.dispatcher.ListVoices(r.Context(), mode, raw)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

// Modes handles GET /modes.
func (h *TTSHandler) Modes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcher.Modes())
}

// writeCoreError renders the stable error envelope. Client-caused failures
// carry their own message and code; everything else is logged in full and
// returned opaque.
func writeCoreError(w http.ResponseWriter, err error) {
	var reqErr *tts.RequestError
	if errors.As(err, &reqErr) {
		writeJSON(w, reqErr.Status, errorEnvelope{Display: reqErr.Message, Code: reqErr.Code})
		return
	}

	slog.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Display: "Unknown error", Code: tts.CodeUnknown})
}

func writeBadQuery(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Display: msg, Code: tts.CodeUnknown})
}

type errorEnvelope struct {
	Display string `json:"display"`
	Code    int    `json:"code"`
}
