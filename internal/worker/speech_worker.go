// Package worker runs asynchronous speech synthesis for diary entries.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"sobi/internal/amqp"
	"sobi/internal/store"
)

// SpeechService synthesizes text and stores the audio.
type SpeechService interface {
	Speak(ctx context.Context, userID, text string) (url, key string, err error)
}

// SpeechWorker consumes speech jobs and writes the resulting audio URL
// back onto the diary entry.
type SpeechWorker struct {
	speech  SpeechService
	diaries store.DiaryStore
}

func NewSpeechWorker(speech SpeechService, diaries store.DiaryStore) *SpeechWorker {
	return &SpeechWorker{speech: speech, diaries: diaries}
}

// HandleSpeechJob processes one job. A returned error requeues the job.
func (w *SpeechWorker) HandleSpeechJob(ctx context.Context, msg *amqp.SpeechJobMessage) error {
	slog.InfoContext(ctx, "Processing speech job",
		"entry_id", msg.EntryID,
		"user_id", msg.UserID)

	if msg.Text == "" {
		slog.WarnContext(ctx, "Speech job has empty text, skipping",
			"entry_id", msg.EntryID)
		return nil
	}

	audioURL, _, err := w.speech.Speak(ctx, msg.UserID, msg.Text)
	if err != nil {
		return fmt.Errorf("synthesize diary audio: %w", err)
	}

	if err := w.diaries.SetEntryAudioURL(ctx, msg.EntryID, audioURL); err != nil {
		return fmt.Errorf("attach audio url to entry: %w", err)
	}

	slog.InfoContext(ctx, "Attached audio to diary entry",
		"entry_id", msg.EntryID,
		"audio_url", audioURL)
	return nil
}
