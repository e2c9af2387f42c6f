package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message belongs to one Conversation. Seq is the position inside the conversation
// and gives the strict chronological order even when created_at values collide.
type Message struct {
	ID             string         `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID string         `gorm:"type:char(36);not null;uniqueIndex:idx_conversation_seq,priority:1" json:"conversation_id"`
	Seq            uint64         `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:2" json:"seq"`
	Role           string         `gorm:"size:16;not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// MessageMetadata records what the retrieval pipeline saw for a turn.
type MessageMetadata struct {
	Keywords       []string `json:"keywords,omitempty"`
	MatchedRecords []string `json:"matched_records,omitempty"`
	DetectedIntent string   `json:"detected_intent,omitempty"`
	InfoFound      bool     `json:"info_found"`
}

// ParsedMetadata returns nil when the message carries no metadata.
func (m *Message) ParsedMetadata() *MessageMetadata {
	if len(m.Metadata) == 0 || string(m.Metadata) == "null" {
		return nil
	}
	var meta MessageMetadata
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return nil
	}
	return &meta
}

func (m *Message) SetMetadata(meta *MessageMetadata) {
	if meta == nil {
		m.Metadata = nil
		return
	}
	b, _ := json.Marshal(meta)
	m.Metadata = datatypes.JSON(b)
}
