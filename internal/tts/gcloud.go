package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies a bearer token valid at call time. Production uses
// the credentials.Manager; tests substitute a fixed token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

var gcloudEncodings = map[string]struct {
	encoding    string
	contentType string
}{
	"ogg_opus": {"OGG_OPUS", "audio/opus"},
	"mp3":      {"MP3", "audio/mpeg"},
	"linear16": {"LINEAR16", "audio/wav"},
}

// GCloudVoice is the provider-native voice record returned for raw listings.
type GCloudVoice struct {
	Name                   string   `json:"name"`
	LanguageCodes          []string `json:"languageCodes"`
	SSMLGender             string   `json:"ssmlGender"`
	NaturalSampleRateHertz int      `json:"naturalSampleRateHertz"`
}

// GCloud calls the Google Cloud text-to-speech REST API with a self-signed
// JWT. Voices are addressed as "<languageCode> <variant>", which maps onto
// the provider's "<languageCode>-Standard-<variant>" names.
type GCloud struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client

	mu        sync.Mutex
	voices    []GCloudVoice
	fetchedAt time.Time
}

func NewGCloud(baseURL string, tokens TokenSource) *GCloud {
	if baseURL == "" {
		baseURL = "https://texttospeech.googleapis.com"
	}
	return &GCloud{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *GCloud) Name() string        { return string(ModeGCloud) }
func (g *GCloud) ContentType() string { return "audio/opus" }

func (g *GCloud) catalog(ctx context.Context) ([]GCloudVoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.voices != nil && time.Since(g.fetchedAt) < voiceCatalogTTL {
		return g.voices, nil
	}

	var listing struct {
		Voices []GCloudVoice `json:"voices"`
	}
	if err := g.call(ctx, http.MethodGet, "/v1/voices", nil, &listing); err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}

	g.voices = listing.Voices
	g.fetchedAt = time.Now()
	return g.voices, nil
}

func (g *GCloud) Voices(ctx context.Context) ([]Voice, error) {
	raw, err := g.catalog(ctx)
	if err != nil {
		return nil, err
	}

	var voices []Voice
	for _, v := range raw {
		language, variant, ok := splitStandardVoice(v.Name)
		if !ok || len(v.LanguageCodes) == 0 {
			continue
		}
		voices = append(voices, Voice{
			Name:     language + " " + variant,
			Language: v.LanguageCodes[0],
		})
	}
	return voices, nil
}

func (g *GCloud) RawVoices(ctx context.Context) (any, error) {
	return g.catalog(ctx)
}

func (g *GCloud) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	language, variant, ok := strings.Cut(voice, " ")
	if !ok {
		return false, nil
	}
	want := fmt.Sprintf("%s-Standard-%s", language, variant)

	raw, err := g.catalog(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range raw {
		if v.Name == want {
			return true, nil
		}
	}
	return false, nil
}

func (g *GCloud) MaxSpeakingRate() (float64, bool) { return 4.0, true }

func (g *GCloud) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	language, variant, ok := strings.Cut(req.Voice, " ")
	if !ok {
		return nil, fmt.Errorf("voice %q cannot be split into language and variant", req.Voice)
	}

	enc := gcloudEncodings["ogg_opus"]
	if req.PreferredFormat != "" {
		if e, found := gcloudEncodings[req.PreferredFormat]; found {
			enc = e
		}
	}

	audioConfig := map[string]any{"audioEncoding": enc.encoding}
	if req.SpeakingRate > 0 {
		audioConfig["speakingRate"] = req.SpeakingRate
	}
	body := map[string]any{
		"input": map[string]string{"text": req.Text},
		"voice": map[string]string{
			"languageCode": language,
			"name":         fmt.Sprintf("%s-Standard-%s", language, variant),
		},
		"audioConfig": audioConfig,
	}

	var synthesized struct {
		AudioContent string `json:"audioContent"`
	}
	if err := g.call(ctx, http.MethodPost, "/v1/text:synthesize", body, &synthesized); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(synthesized.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return &SynthesisResult{Audio: audio, ContentType: enc.contentType}, nil
}

// CheckLength always passes: gCloud output duration is bounded by the API's
// own input limits.
func (g *GCloud) CheckLength(audio []byte, maxSeconds int) bool { return true }

func (g *GCloud) call(ctx context.Context, method, path string, body, out any) error {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gcloud request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gcloud failed (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func splitStandardVoice(name string) (language, variant string, ok bool) {
	parts := strings.Split(name, "-")
	if len(parts) != 4 || parts[2] != "Standard" {
		return "", "", false
	}
	return parts[0] + "-" + parts[1], parts[3], true
}
