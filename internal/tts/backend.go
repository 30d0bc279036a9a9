package tts

import "context"

// Backend abstracts one TTS provider (free web service, local synthesizer,
// or cloud API) behind a uniform capability set.
type Backend interface {
	Name() string

	// ContentType is the default MIME type for audio this backend produces,
	// used when the actual type is unknown (e.g. cache hits).
	ContentType() string

	// Voices returns the normalized voice catalog. For cloud providers this
	// may involve a network round trip and can fail.
	Voices(ctx context.Context) ([]Voice, error)

	// RawVoices returns the provider-native voice records.
	RawVoices(ctx context.Context) (any, error)

	// IsValidVoice reports whether the backend knows the voice. A returned
	// error means the catalog could not be consulted at all, not that the
	// voice is unknown.
	IsValidVoice(ctx context.Context, voice string) (bool, error)

	// MaxSpeakingRate returns the backend's upper speaking-rate bound.
	// ok=false means the backend is unconstrained.
	MaxSpeakingRate() (max float64, ok bool)

	// Synthesize performs the provider call. No retries happen here; retry
	// policy, if any, belongs to the caller.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)

	// CheckLength reports whether the audio fits within maxSeconds. Backends
	// whose output cannot exceed an implicit limit return true unconditionally.
	CheckLength(audio []byte, maxSeconds int) bool
}

// Voice is the normalized projection of a provider voice record.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// SynthesisRequest carries one synthesis call through validation, cache and
// backend dispatch. Zero values mean "not set" for SpeakingRate,
// MaxLengthSeconds and PreferredFormat, matching the query-string wire format.
type SynthesisRequest struct {
	Text             string
	Mode             TTSMode
	Voice            string
	SpeakingRate     float64
	MaxLengthSeconds int
	PreferredFormat  string
}

// SynthesisResult holds the synthesized audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
}
