package tts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// voiceCatalogTTL bounds how long a remotely fetched voice catalog is
// reused before the next request refreshes it.
const voiceCatalogTTL = 10 * time.Minute

var pollyFormats = map[string]pollytypes.OutputFormat{
	"ogg_vorbis": pollytypes.OutputFormatOggVorbis,
	"mp3":        pollytypes.OutputFormatMp3,
	"pcm":        pollytypes.OutputFormatPcm,
}

var pollyContentTypes = map[pollytypes.OutputFormat]string{
	pollytypes.OutputFormatOggVorbis: "audio/ogg",
	pollytypes.OutputFormatMp3:       "audio/mpeg",
	pollytypes.OutputFormatPcm:       "audio/pcm",
}

var ssmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Polly wraps the AWS Polly SDK client. The voice catalog is fetched
// remotely and memoized; speaking rate is an SSML prosody percentage.
type Polly struct {
	client *polly.Client

	mu        sync.Mutex
	voices    []pollytypes.Voice
	fetchedAt time.Time
}

func NewPolly(cfg aws.Config) *Polly {
	return &Polly{client: polly.NewFromConfig(cfg)}
}

func (p *Polly) Name() string        { return string(ModePolly) }
func (p *Polly) ContentType() string { return "audio/ogg" }

func (p *Polly) catalog(ctx context.Context) ([]pollytypes.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voices != nil && time.Since(p.fetchedAt) < voiceCatalogTTL {
		return p.voices, nil
	}

	var voices []pollytypes.Voice
	input := &polly.DescribeVoicesInput{}
	for {
		out, err := p.client.DescribeVoices(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe voices: %w", err)
		}
		voices = append(voices, out.Voices...)
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	p.voices = voices
	p.fetchedAt = time.Now()
	return voices, nil
}

func (p *Polly) Voices(ctx context.Context) ([]Voice, error) {
	raw, err := p.catalog(ctx)
	if err != nil {
		return nil, err
	}
	voices := make([]Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, Voice{
			Name:     string(v.Id),
			Language: string(v.LanguageCode),
		})
	}
	return voices, nil
}

func (p *Polly) RawVoices(ctx context.Context) (any, error) {
	return p.catalog(ctx)
}

func (p *Polly) IsValidVoice(ctx context.Context, voice string) (bool, error) {
	raw, err := p.catalog(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range raw {
		if string(v.Id) == voice {
			return true, nil
		}
	}
	return false, nil
}

func (p *Polly) MaxSpeakingRate() (float64, bool) { return 500, true }

func (p *Polly) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	format := pollytypes.OutputFormatOggVorbis
	if req.PreferredFormat != "" {
		if f, ok := pollyFormats[req.PreferredFormat]; ok {
			format = f
		}
	}

	input := &polly.SynthesizeSpeechInput{
		OutputFormat: format,
		VoiceId:      pollytypes.VoiceId(req.Voice),
		Text:         aws.String(req.Text),
	}
	if req.SpeakingRate > 0 {
		input.TextType = pollytypes.TextTypeSsml
		input.Text = aws.String(fmt.Sprintf(
			`<speak><prosody rate="%d%%">%s</prosody></speak>`,
			int(req.SpeakingRate), ssmlEscaper.Replace(req.Text),
		))
	}

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}

	contentType := pollyContentTypes[format]
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return &SynthesisResult{Audio: audio, ContentType: contentType}, nil
}

// CheckLength always passes: Polly bounds output by its own text limits, so
// duration never needs probing here.
func (p *Polly) CheckLength(audio []byte, maxSeconds int) bool { return true }
