package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sobi/internal/amqp"
	"sobi/internal/store"
	"sobi/internal/store/memory"
)

type fakeSpeech struct {
	url   string
	err   error
	calls int
}

func (f *fakeSpeech) Speak(_ context.Context, userID, _ string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.url, "tts_audio/" + userID + ".mp3", nil
}

func TestHandleSpeechJob(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	entryID, err := st.InsertEntry(ctx, store.DiaryEntry{UserID: "hana", Date: "2025-06-01", Text: "오늘 일기"})
	require.NoError(t, err)

	speech := &fakeSpeech{url: "https://bucket/tts_audio/hana_x.mp3"}
	w := NewSpeechWorker(speech, st)

	msg := amqp.NewSpeechJobMessage(entryID, "hana", "오늘 일기")
	require.NoError(t, w.HandleSpeechJob(ctx, msg))

	entries, err := st.ListEntries(ctx, "hana")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, speech.url, entries[0].AudioURL)
}

func TestHandleSpeechJobSkipsEmptyText(t *testing.T) {
	speech := &fakeSpeech{url: "unused"}
	w := NewSpeechWorker(speech, memory.New())

	err := w.HandleSpeechJob(context.Background(), amqp.NewSpeechJobMessage("e1", "hana", ""))
	require.NoError(t, err)
	assert.Zero(t, speech.calls, "no synthesis for empty text")
}

func TestHandleSpeechJobPropagatesSynthesisError(t *testing.T) {
	w := NewSpeechWorker(&fakeSpeech{err: errors.New("tts down")}, memory.New())

	err := w.HandleSpeechJob(context.Background(), amqp.NewSpeechJobMessage("e1", "hana", "텍스트"))
	assert.Error(t, err, "error requeues the job")
}
