package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"legalrecords-assistant/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Create(ctx context.Context, entry *model.QueryLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create query log failed: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) ListByConversationID(ctx context.Context, conversationID string) ([]model.QueryLog, error) {
	var list []model.QueryLog
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list query logs failed: %w", err)
	}
	return list, nil
}
