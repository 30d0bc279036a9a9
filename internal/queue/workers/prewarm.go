package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/avickers/ttsgate/internal/queue"
	"github.com/avickers/ttsgate/internal/tts"
)

// PrewarmWorker replays queued requests through the regular dispatcher so
// the synthesized audio lands in the cache. A failed synthesis is a task
// failure handled by the asynq retry policy; nothing here is user-facing.
type PrewarmWorker struct {
	dispatcher *tts.Dispatcher
}

func NewPrewarmWorker(d *tts.Dispatcher) *PrewarmWorker {
	return &PrewarmWorker{dispatcher: d}
}

func (w *PrewarmWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.CachePrewarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	mode, err := tts.ParseMode(payload.Mode)
	if err != nil {
		return fmt.Errorf("prewarm %s: %w", payload.JobID, err)
	}

	slog.Info("prewarming cache entry", "job_id", payload.JobID, "mode", mode, "voice", payload.Voice)

	_, err = w.dispatcher.Dispatch(ctx, tts.SynthesisRequest{
		Text:            payload.Text,
		Mode:            mode,
		Voice:           payload.Voice,
		SpeakingRate:    payload.SpeakingRate,
		PreferredFormat: payload.PreferredFormat,
	})
	if err != nil {
		return fmt.Errorf("prewarm %s: %w", payload.JobID, err)
	}
	return nil
}
