package amqp

import (
	"encoding/json"
	"time"
)

// SpeechJobMessage asks the speech worker to synthesize audio for a
// diary entry. It carries the full text so the worker does not need a
// read path back to the diary collection.
type SpeechJobMessage struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSpeechJobMessage(entryID, userID, text string) *SpeechJobMessage {
	return &SpeechJobMessage{
		EntryID:   entryID,
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *SpeechJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SpeechJobMessageFromJSON(data []byte) (*SpeechJobMessage, error) {
	var msg SpeechJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
