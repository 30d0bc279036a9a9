package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/avickers/ttsgate/pkg/audioprobe"
)

// espeakVoices is the static catalog of espeak-ng voice identifiers.
// Dialect variants like "en-us" resolve against their base language.
var espeakVoices = []string{
	"af", "am", "an", "ar", "as", "az", "bg", "bn", "bs", "ca", "cs", "cy",
	"da", "de", "el", "en", "en-gb", "en-gb-scotland", "en-us", "eo", "es",
	"es-419", "et", "eu", "fa", "fi", "fr", "fr-be", "ga", "gd", "gn", "gu",
	"hi", "hr", "hu", "hy", "ia", "id", "is", "it", "ja", "ka", "kn", "ko",
	"ku", "ky", "la", "lt", "lv", "mk", "ml", "mr", "ms", "mt", "my", "ne",
	"nl", "no", "or", "pa", "pl", "pt", "pt-br", "ro", "ru", "sd", "si",
	"sk", "sl", "sq", "sr", "sv", "sw", "ta", "te", "th", "tr", "tt", "ur",
	"uz", "vi", "zh", "zh-yue",
}

// ESpeak shells out to espeak-ng and captures WAV from stdout. Speaking
// rate is words per minute via -s.
type ESpeak struct {
	binPath string
}

func NewESpeak(binPath string) *ESpeak {
	if binPath == "" {
		binPath = "espeak-ng"
	}
	return &ESpeak{binPath: binPath}
}

// Available reports whether the configured binary resolves on PATH, so the
// registry can omit the mode on hosts without espeak-ng installed.
func (e *ESpeak) Available() bool {
	_, err := exec.LookPath(e.binPath)
	return err == nil
}

func (e *ESpeak) Name() string        { return string(ModeESpeak) }
func (e *ESpeak) ContentType() string { return "audio/wav" }

func (e *ESpeak) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(espeakVoices))
	for _, v := range espeakVoices {
		voices = append(voices, Voice{Name: v, Language: baseLanguage(v)})
	}
	return voices, nil
}

func (e *ESpeak) RawVoices(ctx context.Context) (any, error) {
	return espeakVoices, nil
}

func (e *ESpeak) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	for _, v := range espeakVoices {
		if v == voice {
			return true, nil
		}
	}
	// Unlisted dialects of a known base language still synthesize.
	base := baseLanguage(voice)
	if base != voice {
		for _, v := range espeakVoices {
			if v == base {
				return true, nil
			}
		}
	}
	return false, nil
}

func (e *ESpeak) MaxSpeakingRate() (float64, bool) { return 400, true }

func (e *ESpeak) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	args := []string{"--stdout", "-v", req.Voice}
	if req.SpeakingRate > 0 {
		args = append(args, "-s", strconv.Itoa(int(req.SpeakingRate)))
	}

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("espeak failed: %w (stderr: %s)", err, stderr.String())
	}

	return &SynthesisResult{Audio: stdout.Bytes(), ContentType: e.ContentType()}, nil
}

func (e *ESpeak) CheckLength(audio []byte, maxSeconds int) bool {
	return audioprobe.CheckWAVLength(audio, maxSeconds)
}

func baseLanguage(voice string) string {
	if i := strings.IndexByte(voice, '-'); i > 0 {
		return voice[:i]
	}
	return voice
}
