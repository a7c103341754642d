package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 500

// HasRows reports whether the table behind model contains any row.
func (r *GormRepository) HasRows(ctx context.Context, model interface{}) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repository not initialised")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BulkInsert inserts a slice of rows in batches inside one transaction.
// Rows keep their explicit primary keys.
func (r *GormRepository) BulkInsert(ctx context.Context, rows interface{}) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{SkipHooks: true}).
			Omit(clause.Associations).
			CreateInBatches(rows, importBatchSize).Error
	})
}

// SyncSequences moves PostgreSQL id sequences past the imported ids.
// Other dialects track auto-increment values themselves.
func (r *GormRepository) SyncSequences(ctx context.Context, tables ...string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if !strings.EqualFold(r.db.Dialector.Name(), "postgres") {
		return nil
	}

	for _, table := range tables {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table,
		)
		if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("sync sequence for %s: %w", table, err)
		}
	}
	return nil
}
