package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sobi/internal/core"
	"sobi/internal/store"
)

func TestFindUserByID(t *testing.T) {
	s := New()
	s.AddUser("hana", []core.RawRecord{{"날짜": "2025-06-01"}})

	doc, err := s.FindUserByID(context.Background(), "hana")
	require.NoError(t, err)
	assert.Equal(t, "hana", doc.Username)
	assert.Len(t, doc.Profile.Records, 1)

	_, err = s.FindUserByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestDiaryEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.InsertEntry(ctx, store.DiaryEntry{UserID: "hana", Date: "2025-06-02", Text: "b"})
	require.NoError(t, err)
	_, err = s.InsertEntry(ctx, store.DiaryEntry{UserID: "hana", Date: "2025-06-01", Text: "a"})
	require.NoError(t, err)
	_, err = s.InsertEntry(ctx, store.DiaryEntry{UserID: "other", Date: "2025-06-03"})
	require.NoError(t, err)

	entries, err := s.ListEntries(ctx, "hana")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Text, "entries sorted by date ascending")

	require.NoError(t, s.SetEntryAudioURL(ctx, id1, "https://bucket/tts_audio/x.mp3"))
	entries, err = s.ListEntries(ctx, "hana")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/tts_audio/x.mp3", entries[1].AudioURL)

	assert.Error(t, s.SetEntryAudioURL(ctx, "missing", "u"))
}

func TestConversations(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, date := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		_, err := s.InsertConversation(ctx, store.Conversation{
			UserID:  "hana",
			Date:    date,
			History: []store.ConversationTurn{{Role: "user", Content: "x"}},
		})
		require.NoError(t, err)
	}
	_, err := s.InsertConversation(ctx, store.Conversation{UserID: "other", Date: "2025-06-04"})
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx, "hana", 0)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, "2025-06-03", convs[0].Date, "newest first")
	assert.NotEmpty(t, convs[0].ID)

	convs, err = s.ListConversations(ctx, "hana", 2)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "2025-06-03", convs[0].Date)

	convs, err = s.ListConversations(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, convs)
}
