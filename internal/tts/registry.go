package tts

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/avickers/ttsgate/internal/config"
	"github.com/avickers/ttsgate/internal/credentials"
)

// modeOrder fixes the order modes are reported in, independent of which
// happen to be registered.
var modeOrder = []TTSMode{ModeGTTS, ModePolly, ModeESpeak, ModeGCloud, ModeOpenAI}

// Registry maps each live mode to its backend. It is built once at startup
// from whatever providers are configured; a provider without credentials is
// simply absent, and the map is read-only afterwards.
type Registry struct {
	backends map[TTSMode]Backend
}

func NewRegistry(ctx context.Context, cfg *config.Config) *Registry {
	backends := map[TTSMode]Backend{
		ModeGTTS: NewGTTS(cfg.GTTS.BaseURL),
	}

	if es := NewESpeak(cfg.ESpeak.BinPath); es.Available() {
		backends[ModeESpeak] = es
	} else {
		slog.Warn("espeak binary not found, eSpeak mode disabled", "bin", cfg.ESpeak.BinPath)
	}

	if cfg.Polly.Region != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Polly.Region))
		if err != nil {
			slog.Warn("aws config unavailable, Polly mode disabled", "error", err)
		} else {
			backends[ModePolly] = NewPolly(awsCfg)
		}
	}

	if cfg.GCloud.CredentialsFile != "" {
		sa, err := credentials.LoadServiceAccount(cfg.GCloud.CredentialsFile)
		if err != nil {
			slog.Warn("service account unavailable, gCloud mode disabled", "error", err)
		} else {
			backends[ModeGCloud] = NewGCloud("", credentials.NewManager(sa))
		}
	}

	if cfg.OpenAI.APIKey != "" {
		backends[ModeOpenAI] = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	return &Registry{backends: backends}
}

// NewRegistryFromBackends builds a registry directly, for tests.
func NewRegistryFromBackends(backends map[TTSMode]Backend) *Registry {
	return &Registry{backends: backends}
}

func (r *Registry) Backend(mode TTSMode) (Backend, error) {
	b, ok := r.backends[mode]
	if !ok {
		return nil, fmt.Errorf("mode %s is not configured", mode)
	}
	return b, nil
}

// Modes returns the registered mode names in declaration order.
func (r *Registry) Modes() []string {
	modes := make([]string, 0, len(r.backends))
	for _, m := range modeOrder {
		if _, ok := r.backends[m]; ok {
			modes = append(modes, string(m))
		}
	}
	return modes
}
