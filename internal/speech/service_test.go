package speech

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTTS struct {
	gotText string
	err     error
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.gotText = text
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3"), nil
}

type fakeStore struct {
	gotKey string
}

func (f *fakeStore) Upload(_ context.Context, key string, _ []byte) (string, error) {
	f.gotKey = key
	return "https://bucket.s3.ap-northeast-2.amazonaws.com/" + key, nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	f.gotKey = key
	return "https://signed/" + key, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSpeakUploadsUnderUserKey(t *testing.T) {
	tts := &fakeTTS{}
	st := &fakeStore{}
	svc := NewService(tts, st, discardLogger())

	url, key, err := svc.Speak(context.Background(), "hana", "오늘 소비 일기")
	require.NoError(t, err)
	assert.Equal(t, st.gotKey, key)
	assert.True(t, strings.HasPrefix(key, "tts_audio/hana_"))
	assert.True(t, strings.HasSuffix(key, ".mp3"))
	assert.Contains(t, url, key)
}

func TestSpeakTruncatesLongText(t *testing.T) {
	tts := &fakeTTS{}
	svc := NewService(tts, &fakeStore{}, discardLogger())

	long := strings.Repeat("가", maxSynthesisRunes+200)
	_, _, err := svc.Speak(context.Background(), "hana", long)
	require.NoError(t, err)
	assert.Len(t, []rune(tts.gotText), maxSynthesisRunes)
}

func TestReplayURLRejectsPathTraversal(t *testing.T) {
	svc := NewService(&fakeTTS{}, &fakeStore{}, discardLogger())

	_, err := svc.ReplayURL(context.Background(), "../secrets.mp3")
	assert.Error(t, err)

	_, err = svc.ReplayURL(context.Background(), "")
	assert.Error(t, err)

	url, err := svc.ReplayURL(context.Background(), "hana_x.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/tts_audio/hana_x.mp3", url)
}
