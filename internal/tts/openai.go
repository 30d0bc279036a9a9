package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/avickers/ttsgate/pkg/audioprobe"
)

var openAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var openAIFormats = map[string]struct {
	format      openai.SpeechResponseFormat
	contentType string
}{
	"mp3":  {openai.SpeechResponseFormatMp3, "audio/mpeg"},
	"opus": {openai.SpeechResponseFormatOpus, "audio/opus"},
	"aac":  {openai.SpeechResponseFormatAac, "audio/aac"},
	"flac": {openai.SpeechResponseFormatFlac, "audio/flac"},
	"wav":  {openai.SpeechResponseFormatWav, "audio/wav"},
}

// OpenAI synthesizes through the OpenAI speech endpoint. The voice set is
// fixed by the provider; speed is a float multiplier capped at 4.0.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "tts-1"
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *OpenAI) Name() string        { return string(ModeOpenAI) }
func (o *OpenAI) ContentType() string { return "audio/mpeg" }

func (o *OpenAI) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	for _, v := range openAIVoices {
		voices = append(voices, Voice{Name: v, Language: "multilingual"})
	}
	return voices, nil
}

func (o *OpenAI) RawVoices(ctx context.Context) (any, error) {
	return openAIVoices, nil
}

func (o *OpenAI) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	for _, v := range openAIVoices {
		if v == voice {
			return true, nil
		}
	}
	return false, nil
}

func (o *OpenAI) MaxSpeakingRate() (float64, bool) { return 4.0, true }

func (o *OpenAI) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	format := openAIFormats["mp3"]
	if req.PreferredFormat != "" {
		if f, ok := openAIFormats[req.PreferredFormat]; ok {
			format = f
		}
	}

	speechReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: format.format,
	}
	if req.SpeakingRate > 0 {
		speechReq.Speed = req.SpeakingRate
	}

	resp, err := o.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return &SynthesisResult{Audio: audio, ContentType: format.contentType}, nil
}

func (o *OpenAI) CheckLength(audio []byte, maxSeconds int) bool {
	return audioprobe.CheckMP3Length(audio, maxSeconds)
}
