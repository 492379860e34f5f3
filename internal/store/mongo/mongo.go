// Package mongo implements the document-store ports on MongoDB, the
// system of record for user profiles, diary entries and chatbot
// conversations.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sobi/internal/store"
)

const (
	usersCollection         = "users"
	diaryCollection         = "diary_entries"
	conversationsCollection = "conversations"
)

// Store holds the client plus the collections the service touches.
type Store struct {
	client        *mongo.Client
	users         *mongo.Collection
	diaries       *mongo.Collection
	conversations *mongo.Collection
}

// Connect dials MongoDB and pings it so a dead store fails startup
// instead of the first request. serverSelectionTimeout bounds both.
func Connect(ctx context.Context, uri, database string, serverSelectionTimeout time.Duration) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	slog.Info("Connected to MongoDB", "database", database)

	return &Store{
		client:        client,
		users:         db.Collection(usersCollection),
		diaries:       db.Collection(diaryCollection),
		conversations: db.Collection(conversationsCollection),
	}, nil
}

// FindUserByID returns the profile document for a username.
func (s *Store) FindUserByID(ctx context.Context, userID string) (*store.UserDocument, error) {
	var doc store.UserDocument
	err := s.users.FindOne(ctx, bson.M{"username": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", userID, err)
	}
	return &doc, nil
}

// ListEntries returns all authored diary entries for a user.
func (s *Store) ListEntries(ctx context.Context, userID string) ([]store.DiaryEntry, error) {
	cur, err := s.diaries.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list diary entries for %q: %w", userID, err)
	}
	defer cur.Close(ctx)

	var entries []store.DiaryEntry
	for cur.Next(ctx) {
		var raw struct {
			OID              primitive.ObjectID `bson:"_id"`
			store.DiaryEntry `bson:",inline"`
		}
		if err := cur.Decode(&raw); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable diary entry", "user_id", userID, "error", err)
			continue
		}
		entry := raw.DiaryEntry
		entry.ID = raw.OID.Hex()
		entries = append(entries, entry)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate diary entries for %q: %w", userID, err)
	}
	return entries, nil
}

// InsertEntry stores a new diary entry and returns its generated ID.
func (s *Store) InsertEntry(ctx context.Context, e store.DiaryEntry) (string, error) {
	res, err := s.diaries.InsertOne(ctx, e)
	if err != nil {
		return "", fmt.Errorf("insert diary entry: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

// SetEntryAudioURL attaches the synthesized audio location to an entry.
func (s *Store) SetEntryAudioURL(ctx context.Context, entryID, url string) error {
	oid, err := primitive.ObjectIDFromHex(entryID)
	if err != nil {
		return fmt.Errorf("parse entry id %q: %w", entryID, err)
	}
	_, err = s.diaries.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"audio_url": url}})
	if err != nil {
		return fmt.Errorf("set audio url on entry %q: %w", entryID, err)
	}
	return nil
}

// ListConversations returns the user's chatbot sessions newest first.
// ObjectIDs grow monotonically, so sorting on _id orders by creation.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]store.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.conversations.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations for %q: %w", userID, err)
	}
	defer cur.Close(ctx)

	var convs []store.Conversation
	for cur.Next(ctx) {
		var raw struct {
			OID                primitive.ObjectID `bson:"_id"`
			store.Conversation `bson:",inline"`
		}
		if err := cur.Decode(&raw); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable conversation", "user_id", userID, "error", err)
			continue
		}
		conv := raw.Conversation
		conv.ID = raw.OID.Hex()
		convs = append(convs, conv)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations for %q: %w", userID, err)
	}
	return convs, nil
}

// InsertConversation stores a chatbot session and returns its ID.
func (s *Store) InsertConversation(ctx context.Context, c store.Conversation) (string, error) {
	res, err := s.conversations.InsertOne(ctx, c)
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
