package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legalrecords-assistant/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// CreateWithRecord inserts a new parent record and its first document in one
// transaction, so a failed document insert leaves no orphan record.
func (r *DocumentRepository) CreateWithRecord(ctx context.Context, record *model.CaseRecord, doc *model.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		doc.RecordID = record.ID
		return tx.Create(doc).Error
	})
	if err != nil {
		return fmt.Errorf("create document with record failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByRecordID(ctx context.Context, recordID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("expediente_id = ?", recordID).
		Order("fecha_subida DESC").
		Order("id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents by record failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) SearchContent(ctx context.Context, keyword string, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where(containsIgnoreCase("contenido", keyword)).
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("search document content failed: %w", err)
	}
	return docs, nil
}

// SearchByType matches tipo_documento case-insensitively, newest first.
func (r *DocumentRepository) SearchByType(ctx context.Context, docType string, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where(containsIgnoreCase("tipo_documento", docType)).
		Order("fecha_subida DESC").
		Order("id DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("search documents by type failed: %w", err)
	}
	return docs, nil
}
