package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avickers/ttsgate/pkg/audioprobe"
)

// gttsLanguages is the static catalog of Google Translate TTS languages.
var gttsLanguages = map[string]string{
	"af": "Afrikaans", "ar": "Arabic", "bg": "Bulgarian", "bn": "Bengali",
	"bs": "Bosnian", "ca": "Catalan", "cs": "Czech", "cy": "Welsh",
	"da": "Danish", "de": "German", "el": "Greek", "en": "English",
	"eo": "Esperanto", "es": "Spanish", "et": "Estonian", "fi": "Finnish",
	"fr": "French", "gu": "Gujarati", "hi": "Hindi", "hr": "Croatian",
	"hu": "Hungarian", "hy": "Armenian", "id": "Indonesian", "is": "Icelandic",
	"it": "Italian", "ja": "Japanese", "jw": "Javanese", "km": "Khmer",
	"kn": "Kannada", "ko": "Korean", "la": "Latin", "lv": "Latvian",
	"mk": "Macedonian", "ml": "Malayalam", "mr": "Marathi", "ms": "Malay",
	"my": "Myanmar", "ne": "Nepali", "nl": "Dutch", "no": "Norwegian",
	"pl": "Polish", "pt": "Portuguese", "ro": "Romanian", "ru": "Russian",
	"si": "Sinhala", "sk": "Slovak", "sq": "Albanian", "sr": "Serbian",
	"su": "Sundanese", "sv": "Swedish", "sw": "Swahili", "ta": "Tamil",
	"te": "Telugu", "th": "Thai", "tl": "Filipino", "tr": "Turkish",
	"uk": "Ukrainian", "ur": "Urdu", "vi": "Vietnamese", "zh-CN": "Chinese",
}

// GTTS hits the free Google Translate speech endpoint. No credentials, no
// rate control, MP3 out.
type GTTS struct {
	baseURL    string
	httpClient *http.Client
}

func NewGTTS(baseURL string) *GTTS {
	if baseURL == "" {
		baseURL = "https://translate.google.com"
	}
	return &GTTS{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *GTTS) Name() string        { return string(ModeGTTS) }
func (g *GTTS) ContentType() string { return "audio/mpeg" }

func (g *GTTS) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(gttsLanguages))
	for code, language := range gttsLanguages {
		voices = append(voices, Voice{Name: code, Language: language})
	}
	return voices, nil
}

func (g *GTTS) RawVoices(ctx context.Context) (any, error) {
	return gttsLanguages, nil
}

func (g *GTTS) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	_, ok := gttsLanguages[voice]
	return ok, nil
}

func (g *GTTS) MaxSpeakingRate() (float64, bool) { return 0, false }

func (g *GTTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", req.Voice)
	q.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtts failed (status %d)", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return &SynthesisResult{Audio: audio, ContentType: g.ContentType()}, nil
}

func (g *GTTS) CheckLength(audio []byte, maxSeconds int) bool {
	return audioprobe.CheckMP3Length(audio, maxSeconds)
}
