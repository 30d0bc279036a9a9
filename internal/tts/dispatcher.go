package tts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avickers/ttsgate/internal/cache"
	"github.com/avickers/ttsgate/internal/metrics"
	"github.com/avickers/ttsgate/internal/usage"
)

// AudioCache is the slice of the cache subsystem the dispatcher needs.
// Lookup misses on any failure; Store never reports one.
type AudioCache interface {
	Lookup(ctx context.Context, key string) ([]byte, bool)
	Store(ctx context.Context, key string, audio []byte)
}

// UsageRecorder accepts per-request accounting entries without blocking.
type UsageRecorder interface {
	Record(e usage.Entry)
}

// Dispatcher runs the fixed per-request state machine: rate check, voice
// check, cache lookup, synthesize, best-effort store, length check. The
// order never changes; rate and voice fail before any cache or network cost
// is paid, and the length check runs last because it needs the audio bytes
// whatever their origin.
//
// Concurrent identical requests may all miss and all synthesize; the last
// store wins. That duplicate-work window is accepted rather than locked
// away, so the cache adds no cross-request mutual exclusion.
type Dispatcher struct {
	registry *Registry
	cache    AudioCache
	usage    UsageRecorder
}

type DispatcherOption func(*Dispatcher)

// WithUsage attaches a usage recorder. Without one, accounting is skipped.
func WithUsage(r UsageRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.usage = r }
}

func NewDispatcher(registry *Registry, audioCache AudioCache, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, cache: audioCache}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch is the single entry point for synthesis requests.
func (d *Dispatcher) Dispatch(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	start := time.Now()
	res, cacheHit, err := d.dispatch(ctx, req)

	latency := time.Since(start)
	metrics.RequestDuration.WithLabelValues(string(req.Mode)).Observe(latency.Seconds())
	metrics.Requests.WithLabelValues(string(req.Mode), requestStatus(err)).Inc()

	if d.usage != nil {
		d.usage.Record(usage.Entry{
			Mode:      string(req.Mode),
			Voice:     req.Voice,
			Chars:     len(req.Text),
			CacheHit:  cacheHit,
			Status:    requestStatus(err),
			LatencyMs: latency.Milliseconds(),
		})
	}
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req SynthesisRequest) (*SynthesisResult, bool, error) {
	backend, err := d.registry.Backend(req.Mode)
	if err != nil {
		return nil, false, err
	}

	if req.SpeakingRate != 0 {
		if max, bounded := backend.MaxSpeakingRate(); bounded && req.SpeakingRate > max {
			return nil, false, NewInvalidSpeakingRate(req.SpeakingRate)
		}
	}

	ok, err := backend.IsValidVoice(ctx, req.Voice)
	if err != nil {
		return nil, false, &BackendError{Mode: req.Mode, Op: "voices", Err: err}
	}
	if !ok {
		return nil, false, NewUnknownVoice(req.Voice)
	}

	fingerprint := cache.Fingerprint(req.Text, req.Voice, string(req.Mode), req.SpeakingRate, req.PreferredFormat)

	var res *SynthesisResult
	cacheHit := false
	if d.cache != nil {
		if audio, hit := d.cache.Lookup(ctx, fingerprint); hit {
			slog.Debug("cache hit", "mode", req.Mode, "voice", req.Voice)
			res = &SynthesisResult{Audio: audio, ContentType: backend.ContentType()}
			cacheHit = true
		}
	}

	if res == nil {
		res, err = backend.Synthesize(ctx, req)
		if err != nil {
			metrics.Synthesis.WithLabelValues(string(req.Mode), "error").Inc()
			return nil, false, &BackendError{Mode: req.Mode, Op: "synthesize", Err: err}
		}
		metrics.Synthesis.WithLabelValues(string(req.Mode), "ok").Inc()

		if d.cache != nil {
			d.cache.Store(ctx, fingerprint, res.Audio)
		}
	}

	// Applies to cached audio too: an entry stored under a lax limit is
	// still rejected by a later caller's stricter one.
	if req.MaxLengthSeconds > 0 && !backend.CheckLength(res.Audio, req.MaxLengthSeconds) {
		return nil, cacheHit, ErrAudioTooLong
	}

	return res, cacheHit, nil
}

// ListVoices returns either the provider-native records (raw) or the
// normalized {name, language} projection for a mode.
func (d *Dispatcher) ListVoices(ctx context.Context, mode TTSMode, raw bool) (any, error) {
	backend, err := d.registry.Backend(mode)
	if err != nil {
		return nil, err
	}

	if raw {
		voices, err := backend.RawVoices(ctx)
		if err != nil {
			return nil, &BackendError{Mode: mode, Op: "voices", Err: err}
		}
		return voices, nil
	}

	voices, err := backend.Voices(ctx)
	if err != nil {
		return nil, &BackendError{Mode: mode, Op: "voices", Err: err}
	}
	return voices, nil
}

// Modes lists the registered mode names.
func (d *Dispatcher) Modes() []string { return d.registry.Modes() }

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code {
		case CodeInvalidSpeakingRate:
			return "invalid_rate"
		case CodeUnknownVoice:
			return "unknown_voice"
		case CodeAudioTooLong:
			return "too_long"
		}
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Op != "synthesize" {
		return "unavailable"
	}
	return "backend_error"
}
