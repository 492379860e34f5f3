// Package store defines the ports to the document-store collaborator.
// User profiles are read-only; diary entries and chatbot conversations
// are the collections the service writes. Implementations live in the
// mongo and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"sobi/internal/core"
)

// ErrUserNotFound is returned when an identifier matches no document.
var ErrUserNotFound = errors.New("user not found")

// UserDocument is the per-user profile document.
type UserDocument struct {
	Username string  `bson:"username" json:"username"`
	Name     string  `bson:"name,omitempty" json:"name,omitempty"`
	Profile  Profile `bson:"profile" json:"profile"`
}

// Profile nests the raw consumption records. Records stay loosely typed;
// normalization is core's job.
type Profile struct {
	Records []core.RawRecord `bson:"records" json:"records"`
}

// DiaryEntry is a stored emotion-journal entry.
type DiaryEntry struct {
	ID              string    `bson:"-" json:"id"`
	UserID          string    `bson:"user_id" json:"-"`
	Date            string    `bson:"date" json:"date"`
	Text            string    `bson:"text" json:"text"`
	Emotion         string    `bson:"emotion" json:"emotion"`
	ConsumptionType string    `bson:"consumptionType" json:"consumptionType"`
	Amount          int64     `bson:"amount" json:"amount"`
	Satisfaction    int       `bson:"satisfaction" json:"satisfaction"`
	Advice          string    `bson:"advice" json:"advice"`
	AudioURL        string    `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"-"`
}

// ConversationTurn is one line of a chatbot session transcript. Role is
// "user", "gpt" or "system".
type ConversationTurn struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// Conversation is a stored chatbot session. Conversations exist
// independently of consumption profiles, so no user lookup guards them.
type Conversation struct {
	ID      string             `bson:"-" json:"id"`
	UserID  string             `bson:"user_id" json:"-"`
	Date    string             `bson:"date" json:"date"`
	History []ConversationTurn `bson:"history" json:"history"`
}

// Ports for the document store.
type (
	// UserReader looks up a user profile by identifier.
	UserReader interface {
		FindUserByID(ctx context.Context, userID string) (*UserDocument, error)
	}

	// DiaryStore persists authored journal entries.
	DiaryStore interface {
		ListEntries(ctx context.Context, userID string) ([]DiaryEntry, error)
		InsertEntry(ctx context.Context, e DiaryEntry) (id string, err error)
		SetEntryAudioURL(ctx context.Context, entryID, url string) error
	}

	// ConversationStore persists chatbot session transcripts.
	ConversationStore interface {
		// ListConversations returns the user's sessions newest first.
		// A limit of zero or less returns all of them.
		ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)
		InsertConversation(ctx context.Context, c Conversation) (id string, err error)
	}
)
