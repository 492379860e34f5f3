package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Synthesis providers reject very long inputs, so text is truncated a
// little below the 5000-character API limit.
const maxSynthesisRunes = 4900

const audioKeyPrefix = "tts_audio/"

// replayExpiry is how long a presigned replay link stays valid.
const replayExpiry = time.Hour

// Service turns diary text into stored audio.
type Service struct {
	tts    Synthesizer
	store  AudioStore
	logger *slog.Logger
}

func NewService(tts Synthesizer, store AudioStore, logger *slog.Logger) *Service {
	return &Service{tts: tts, store: store, logger: logger}
}

// Speak synthesizes the text and uploads the audio, returning the public
// URL and object key of the stored file.
func (s *Service) Speak(ctx context.Context, userID, text string) (url, key string, err error) {
	text = truncateRunes(text, maxSynthesisRunes)

	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return "", "", fmt.Errorf("synthesize speech: %w", err)
	}

	key = fmt.Sprintf("%s%s_%s.mp3", audioKeyPrefix, userID, uuid.NewString())
	url, err = s.store.Upload(ctx, key, audio)
	if err != nil {
		return "", "", err
	}

	s.logger.Info("stored synthesized audio",
		slog.String("user_id", userID),
		slog.String("key", key),
		slog.Int("bytes", len(audio)))
	return url, key, nil
}

// ReplayURL mints a temporary download link for a previously stored
// audio file. filename is the bare object name without the storage
// prefix.
func (s *Service) ReplayURL(ctx context.Context, filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		return "", fmt.Errorf("invalid audio filename %q", filename)
	}
	return s.store.PresignGet(ctx, audioKeyPrefix+filename, replayExpiry)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
