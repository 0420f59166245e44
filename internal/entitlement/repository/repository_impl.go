package repository

import (
	"context"

	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	"github.com/smallbiznis/genstudio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	FindByCaller(ctx context.Context, callerID string) (*entitlementdomain.Entitlement, error)
	Upsert(ctx context.Context, ent *entitlementdomain.Entitlement) error
}

type repo struct {
	store repository.Repository[entitlementdomain.Entitlement]
}

func Provide(db *gorm.DB) Repository {
	return &repo{store: repository.ProvideStore[entitlementdomain.Entitlement](db)}
}

func (r *repo) FindByCaller(ctx context.Context, callerID string) (*entitlementdomain.Entitlement, error) {
	return r.store.FindOne(ctx, &entitlementdomain.Entitlement{CallerID: callerID})
}

func (r *repo) Upsert(ctx context.Context, ent *entitlementdomain.Entitlement) error {
	return r.store.Upsert(ctx, ent,
		[]string{"caller_id"},
		[]string{"plan_code", "status", "current_period_end", "updated_at"},
	)
}
