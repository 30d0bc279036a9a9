package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avickers/ttsgate/internal/auth"
	"github.com/avickers/ttsgate/internal/tts"
)

type stubBackend struct {
	voices   []string
	audio    []byte
	synthErr error
}

func (s *stubBackend) Name() string        { return "gTTS" }
func (s *stubBackend) ContentType() string { return "audio/mpeg" }

func (s *stubBackend) Voices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	for _, v := range s.voices {
		voices = append(voices, tts.Voice{Name: v, Language: v})
	}
	return voices, nil
}

func (s *stubBackend) RawVoices(ctx context.Context) (any, error) { return s.voices, nil }

func (s *stubBackend) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	for _, v := range s.voices {
		if v == voice {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubBackend) MaxSpeakingRate() (float64, bool) { return 4.0, true }

func (s *stubBackend) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if s.synthErr != nil {
		return nil, s.synthErr
	}
	return &tts.SynthesisResult{Audio: s.audio, ContentType: "audio/mpeg"}, nil
}

func (s *stubBackend) CheckLength(audio []byte, maxSeconds int) bool { return true }

func newTestHandler(backend tts.Backend) *TTSHandler {
	registry := tts.NewRegistryFromBackends(map[tts.TTSMode]tts.Backend{tts.ModeGTTS: backend})
	return NewTTSHandler(tts.NewDispatcher(registry, nil))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en"}, audio: []byte("mp3 bytes")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tts?text=hello&mode=gTTS&lang=en", nil)
	h.Synthesize(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("mp3 bytes"), rec.Body.Bytes())
}

func TestSynthesizeUnknownVoiceEnvelope(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tts?text=hello&mode=gTTS&lang=not-a-real-voice", nil)
	h.Synthesize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, tts.CodeUnknownVoice, env.Code)
	assert.Contains(t, env.Display, "not-a-real-voice")
}

func TestSynthesizeInvalidRateEnvelope(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tts?text=hello&mode=gTTS&lang=en&speaking_rate=4.0001", nil)
	h.Synthesize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, tts.CodeInvalidSpeakingRate, decodeEnvelope(t, rec).Code)
}

func TestSynthesizeBackendFailureIsOpaque(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en"}, synthErr: errors.New("provider secret detail")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tts?text=hello&mode=gTTS&lang=en", nil)
	h.Synthesize(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, tts.CodeUnknown, env.Code)
	assert.NotContains(t, env.Display, "provider secret detail")
}

func TestSynthesizeRejectsBadQuery(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en"}})

	for _, target := range []string{
		"/tts?mode=gTTS&lang=en",                                  // missing text
		"/tts?text=hi&mode=nonsense&lang=en",                      // unknown mode
		"/tts?text=hi&mode=gTTS&lang=en&speaking_rate=fast",       // bad rate
		"/tts?text=hi&mode=gTTS&lang=en&max_length=a+few+seconds", // bad length
	} {
		rec := httptest.NewRecorder()
		h.Synthesize(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestVoicesNormalizedAndRaw(t *testing.T) {
	h := newTestHandler(&stubBackend{voices: []string{"en", "fr"}})

	rec := httptest.NewRecorder()
	h.Voices(rec, httptest.NewRequest(http.MethodGet, "/voices?mode=gTTS", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var normalized []tts.Voice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &normalized))
	assert.Len(t, normalized, 2)

	rec = httptest.NewRecorder()
	h.Voices(rec, httptest.NewRequest(http.MethodGet, "/voices?mode=gTTS&raw=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, []string{"en", "fr"}, raw)
}

func TestModesListing(t *testing.T) {
	h := newTestHandler(&stubBackend{})

	rec := httptest.NewRecorder()
	h.Modes(rec, httptest.NewRequest(http.MethodGet, "/modes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var modes []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modes))
	assert.Equal(t, []string{"gTTS"}, modes)
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects before any core work", func(t *testing.T) {
		mw := auth.NewAPIKeyMiddleware("secret")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tts", nil)
		req.Header.Set("Authorization", "wrong")
		mw.Authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)

		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, tts.CodeUnauthorized, env.Code)
	})

	t.Run("accepts the configured key", func(t *testing.T) {
		mw := auth.NewAPIKeyMiddleware("secret")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tts", nil)
		req.Header.Set("Authorization", "secret")
		mw.Authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty key disables the check", func(t *testing.T) {
		mw := auth.NewAPIKeyMiddleware("")

		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tts", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
