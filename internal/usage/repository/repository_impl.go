package repository

import (
	"context"
	"errors"
	"time"

	usagedomain "github.com/smallbiznis/genstudio/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) FindRecord(ctx context.Context, db *gorm.DB, callerID string) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := db.WithContext(ctx).Where("caller_id = ?", callerID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) (bool, error) {
	if event == nil {
		return false, errors.New("missing_usage_event")
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementCount upserts the caller row with count + 1 in a single statement.
func (r *repo) IncrementCount(ctx context.Context, db *gorm.DB, callerID string, at time.Time) error {
	record := usagedomain.UsageRecord{
		CallerID:  callerID,
		Count:     1,
		CreatedAt: at,
		UpdatedAt: at,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "caller_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"count":      gorm.Expr("usage_records.count + 1"),
				"updated_at": at,
			}),
		}).
		Create(&record).Error
}
