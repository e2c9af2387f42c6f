package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"legalrecords-assistant/internal/model"
)

type CaseRecordRepository struct {
	db *gorm.DB
}

func NewCaseRecordRepository(db *gorm.DB) *CaseRecordRepository {
	return &CaseRecordRepository{db: db}
}

func (r *CaseRecordRepository) Create(ctx context.Context, record *model.CaseRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create case record failed: %w", err)
	}
	return nil
}

func (r *CaseRecordRepository) GetByID(ctx context.Context, id uint) (*model.CaseRecord, error) {
	var record model.CaseRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case record failed: %w", err)
	}
	return &record, nil
}

// GetByNumber matches the record number exactly after upper-casing it.
func (r *CaseRecordRepository) GetByNumber(ctx context.Context, number string) (*model.CaseRecord, error) {
	var record model.CaseRecord
	err := r.db.WithContext(ctx).
		Where("numero_expediente = ?", strings.ToUpper(strings.TrimSpace(number))).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case record by number failed: %w", err)
	}
	return &record, nil
}

func (r *CaseRecordRepository) SearchByNumber(ctx context.Context, fragment string, limit int) ([]model.CaseRecord, error) {
	return r.SearchByField(ctx, "numero_expediente", fragment, limit)
}

// SearchByField does a case-insensitive substring match on one of
// model.RecordSearchColumns.
func (r *CaseRecordRepository) SearchByField(ctx context.Context, column, keyword string, limit int) ([]model.CaseRecord, error) {
	if !isRecordSearchColumn(column) {
		return nil, fmt.Errorf("search case records failed: unsupported column %q", column)
	}
	if limit <= 0 {
		limit = 10
	}
	var records []model.CaseRecord
	err := r.db.WithContext(ctx).
		Where(containsIgnoreCase(column, keyword)).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("search case records by %s failed: %w", column, err)
	}
	return records, nil
}

func (r *CaseRecordRepository) UpdateStatus(ctx context.Context, id uint, status string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CaseRecord{}).Where("id = ?", id).Update("estado", status)
	if result.Error != nil {
		return false, fmt.Errorf("update case record status failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// recordUpdatableColumns is the whitelist for Updates; the id and the
// timestamps are never written from outside.
var recordUpdatableColumns = map[string]struct{}{
	"numero_expediente": {},
	"fecha_creacion":    {},
	"tipo_proceso":      {},
	"modalidad":         {},
	"seccion":           {},
	"tema_principal":    {},
	"area_solicitante":  {},
	"estado":            {},
}

// Updates writes the given columns of one record. Unknown columns are an error.
func (r *CaseRecordRepository) Updates(ctx context.Context, id uint, fields map[string]interface{}) (bool, error) {
	if len(fields) == 0 {
		return false, fmt.Errorf("update case record failed: no fields")
	}
	for column := range fields {
		if _, ok := recordUpdatableColumns[column]; !ok {
			return false, fmt.Errorf("update case record failed: unsupported column %q", column)
		}
	}
	result := r.db.WithContext(ctx).Model(&model.CaseRecord{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("update case record failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func isRecordSearchColumn(column string) bool {
	for _, c := range model.RecordSearchColumns {
		if c == column {
			return true
		}
	}
	return false
}
