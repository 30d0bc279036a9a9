package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name        string
	contentType string
	voices      []string
	voiceErr    error
	maxRate     float64
	rateBounded bool

	audio    []byte
	synthErr error

	synthCalls int
	voiceCalls int

	// maxPlayableSeconds drives CheckLength; 0 means everything passes.
	maxPlayableSeconds int
}

func (f *fakeBackend) Name() string        { return f.name }
func (f *fakeBackend) ContentType() string { return f.contentType }

func (f *fakeBackend) Voices(ctx context.Context) ([]Voice, error) {
	if f.voiceErr != nil {
		return nil, f.voiceErr
	}
	var voices []Voice
	for _, v := range f.voices {
		voices = append(voices, Voice{Name: v, Language: v})
	}
	return voices, nil
}

func (f *fakeBackend) RawVoices(ctx context.Context) (any, error) {
	if f.voiceErr != nil {
		return nil, f.voiceErr
	}
	return f.voices, nil
}

func (f *fakeBackend) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	f.voiceCalls++
	if f.voiceErr != nil {
		return false, f.voiceErr
	}
	for _, v := range f.voices {
		if v == voice {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) MaxSpeakingRate() (float64, bool) { return f.maxRate, f.rateBounded }

func (f *fakeBackend) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	f.synthCalls++
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return &SynthesisResult{Audio: f.audio, ContentType: f.contentType}, nil
}

func (f *fakeBackend) CheckLength(audio []byte, maxSeconds int) bool {
	if f.maxPlayableSeconds == 0 {
		return true
	}
	return f.maxPlayableSeconds < maxSeconds
}

type fakeCache struct {
	entries   map[string][]byte
	dropWrite bool
	lookups   int
	stores    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Lookup(ctx context.Context, key string) ([]byte, bool) {
	f.lookups++
	audio, ok := f.entries[key]
	return audio, ok
}

func (f *fakeCache) Store(ctx context.Context, key string, audio []byte) {
	f.stores++
	if f.dropWrite {
		return
	}
	f.entries[key] = audio
}

func newTestDispatcher(backend *fakeBackend, c AudioCache) *Dispatcher {
	registry := NewRegistryFromBackends(map[TTSMode]Backend{ModeGTTS: backend})
	return NewDispatcher(registry, c)
}

func baseRequest() SynthesisRequest {
	return SynthesisRequest{Text: "hello world", Mode: ModeGTTS, Voice: "en"}
}

func TestDispatchSynthesizes(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("mp3 bytes"),
	}
	d := newTestDispatcher(backend, newFakeCache())

	res, err := d.Dispatch(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), res.Audio)
	assert.Equal(t, "audio/mpeg", res.ContentType)
	assert.Equal(t, 1, backend.synthCalls)
}

func TestDispatchRateBoundary(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("a"),
		maxRate: 4.0, rateBounded: true,
	}
	d := newTestDispatcher(backend, newFakeCache())

	req := baseRequest()
	req.SpeakingRate = 4.0
	_, err := d.Dispatch(context.Background(), req)
	assert.NoError(t, err, "rate equal to the bound is accepted")

	req.SpeakingRate = 4.0001
	_, err = d.Dispatch(context.Background(), req)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, CodeInvalidSpeakingRate, reqErr.Code)
}

func TestDispatchUnboundedRateAcceptsAnything(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("a"),
	}
	d := newTestDispatcher(backend, newFakeCache())

	req := baseRequest()
	req.SpeakingRate = 9000
	_, err := d.Dispatch(context.Background(), req)
	assert.NoError(t, err)
}

func TestDispatchUnknownVoiceFailsBeforeSynthesis(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("a"),
	}
	fc := newFakeCache()
	d := newTestDispatcher(backend, fc)

	req := baseRequest()
	req.Voice = "not-a-real-voice"
	_, err := d.Dispatch(context.Background(), req)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, CodeUnknownVoice, reqErr.Code)
	assert.Zero(t, backend.synthCalls)
	assert.Zero(t, fc.lookups, "validation failures pay no cache cost")
}

func TestDispatchVoiceCatalogFailurePropagates(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voiceErr: errors.New("catalog fetch timed out"),
	}
	d := newTestDispatcher(backend, newFakeCache())

	_, err := d.Dispatch(context.Background(), baseRequest())
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "voices", backendErr.Op)
	assert.Zero(t, backend.synthCalls)
}

func TestDispatchMissThenHit(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("fresh audio"),
	}
	fc := newFakeCache()
	d := newTestDispatcher(backend, fc)

	// First request misses, synthesizes once, stores once.
	res, err := d.Dispatch(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh audio"), res.Audio)
	assert.Equal(t, 1, backend.synthCalls)
	assert.Equal(t, 1, fc.stores)

	// Second identical request is a pure hit.
	res, err = d.Dispatch(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh audio"), res.Audio)
	assert.Equal(t, 1, backend.synthCalls, "cache hit must not synthesize")
	assert.Equal(t, 1, fc.stores)
}

func TestDispatchStoreFailureDoesNotFailRequest(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("audio"),
	}
	fc := newFakeCache()
	fc.dropWrite = true
	d := newTestDispatcher(backend, fc)

	res, err := d.Dispatch(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), res.Audio)
	assert.Equal(t, 1, fc.stores)
}

func TestDispatchWithoutCache(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("audio"),
	}
	registry := NewRegistryFromBackends(map[TTSMode]Backend{ModeGTTS: backend})
	d := NewDispatcher(registry, nil)

	for i := 0; i < 2; i++ {
		res, err := d.Dispatch(context.Background(), baseRequest())
		require.NoError(t, err)
		assert.Equal(t, []byte("audio"), res.Audio)
	}
	assert.Equal(t, 2, backend.synthCalls, "no cache means every request synthesizes")
}

func TestDispatchLengthCheckAppliesToCachedAudio(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, audio: []byte("thirty seconds of speech"),
		maxPlayableSeconds: 30,
	}
	fc := newFakeCache()
	d := newTestDispatcher(backend, fc)

	// Accepted under a lax limit; the entry lands in the cache.
	req := baseRequest()
	req.MaxLengthSeconds = 60
	_, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, fc.stores)

	// Same fingerprint, stricter limit: the cached entry is rejected.
	req.MaxLengthSeconds = 10
	_, err = d.Dispatch(context.Background(), req)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, CodeAudioTooLong, reqErr.Code)
	assert.Equal(t, 1, backend.synthCalls, "the rejection came from cache, not a fresh synthesis")
}

func TestDispatchSynthesisErrorIsBackendError(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en"}, synthErr: errors.New("upstream 502"),
	}
	d := newTestDispatcher(backend, newFakeCache())

	_, err := d.Dispatch(context.Background(), baseRequest())
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "synthesize", backendErr.Op)
}

func TestDispatchUnconfiguredMode(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{name: "gTTS"}, newFakeCache())

	req := baseRequest()
	req.Mode = ModePolly
	_, err := d.Dispatch(context.Background(), req)
	assert.Error(t, err)
}

func TestListVoices(t *testing.T) {
	backend := &fakeBackend{
		name: "gTTS", contentType: "audio/mpeg",
		voices: []string{"en", "fr"},
	}
	d := newTestDispatcher(backend, newFakeCache())

	normalized, err := d.ListVoices(context.Background(), ModeGTTS, false)
	require.NoError(t, err)
	assert.Len(t, normalized.([]Voice), 2)

	raw, err := d.ListVoices(context.Background(), ModeGTTS, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, raw.([]string))
}

func TestModes(t *testing.T) {
	registry := NewRegistryFromBackends(map[TTSMode]Backend{
		ModeGTTS:   &fakeBackend{name: "gTTS"},
		ModeESpeak: &fakeBackend{name: "eSpeak"},
	})
	d := NewDispatcher(registry, nil)

	assert.Equal(t, []string{"gTTS", "eSpeak"}, d.Modes())
}
