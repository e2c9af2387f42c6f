package model

import (
	"time"

	"gorm.io/datatypes"
)

// QueryLog is one audit row per processed chat query.
type QueryLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConversationID string         `gorm:"type:char(36);index" json:"conversation_id"`
	UserID         string         `gorm:"size:64;index" json:"user_id"`
	Query          string         `gorm:"type:text;not null" json:"query"`
	Intent         string         `gorm:"size:16" json:"intent"`
	Provider       string         `gorm:"size:64" json:"provider"`
	Keywords       datatypes.JSON `json:"keywords"`
	MatchedRecords datatypes.JSON `json:"matched_records"`
	RecordCount    int            `json:"record_count"`
	DocumentCount  int            `json:"document_count"`
	ReferenceCount int            `json:"reference_count"`
	ReplyKind      string         `gorm:"size:32" json:"reply_kind"`
	LatencyMS      int64          `json:"latency_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}
