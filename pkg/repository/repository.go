package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is a thin generic gorm store for single-table aggregates.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	FindOne(ctx context.Context, query *T) (*T, error)
	Create(ctx context.Context, resource *T) error
	Upsert(ctx context.Context, resource *T, conflictColumns []string, updateColumns []string) error
	Count(ctx context.Context, query *T) (int64, error)
}

func conflictClause(conflictColumns, updateColumns []string) clause.OnConflict {
	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		columns = append(columns, clause.Column{Name: name})
	}
	if len(updateColumns) == 0 {
		return clause.OnConflict{Columns: columns, DoNothing: true}
	}
	return clause.OnConflict{Columns: columns, DoUpdates: clause.AssignmentColumns(updateColumns)}
}
