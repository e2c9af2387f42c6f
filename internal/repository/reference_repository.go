package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"legalrecords-assistant/internal/model"
)

// ReferenceRepository reads the regulatory lookup tables by name. The tables
// are provisioned outside this service, so their columns are discovered at
// query time.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Columns returns the column names of table in database order. A missing or
// empty table yields no columns and no error.
func (r *ReferenceRepository) Columns(ctx context.Context, table string) ([]string, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		return nil, nil
	}
	rows, err := db.Table(table).Limit(1).Rows()
	if err != nil {
		return nil, fmt.Errorf("probe reference table %s failed: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read reference columns of %s failed: %w", table, err)
	}
	return columns, nil
}

// Search returns up to limit rows of table whose column contains keyword,
// case-insensitively.
func (r *ReferenceRepository) Search(ctx context.Context, table, column, keyword string, limit int) ([]model.ReferenceRow, error) {
	if limit <= 0 {
		limit = 2
	}
	rows, err := r.db.WithContext(ctx).
		Table(table).
		Where(containsIgnoreCase(column, keyword)).
		Limit(limit).
		Rows()
	if err != nil {
		return nil, fmt.Errorf("search reference table %s.%s failed: %w", table, column, err)
	}
	defer rows.Close()

	out, err := scanReferenceRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan reference table %s failed: %w", table, err)
	}
	return out, nil
}

func scanReferenceRows(rows *sql.Rows) ([]model.ReferenceRow, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []model.ReferenceRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.ReferenceRow, 0, len(columns))
		for i, name := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row = append(row, model.ReferenceField{Name: name, Value: value})
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
