package tts

import (
	"fmt"
	"strings"
)

// TTSMode identifies one synthesis backend. The set of modes is closed;
// which of them are actually live in a given process depends on the
// registry built at startup.
type TTSMode string

const (
	ModeGTTS   TTSMode = "gTTS"
	ModePolly  TTSMode = "Polly"
	ModeESpeak TTSMode = "eSpeak"
	ModeGCloud TTSMode = "gCloud"
	ModeOpenAI TTSMode = "OpenAI"
)

func (m TTSMode) String() string { return string(m) }

// ParseMode resolves a wire-format mode name, case-insensitively.
func ParseMode(s string) (TTSMode, error) {
	switch strings.ToLower(s) {
	case "gtts":
		return ModeGTTS, nil
	case "polly":
		return ModePolly, nil
	case "espeak":
		return ModeESpeak, nil
	case "gcloud":
		return ModeGCloud, nil
	case "openai":
		return ModeOpenAI, nil
	}
	return "", fmt.Errorf("unknown TTS mode %q", s)
}
