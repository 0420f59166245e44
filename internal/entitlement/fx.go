package entitlement

import (
	"github.com/smallbiznis/genstudio/internal/cache"
	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	"github.com/smallbiznis/genstudio/internal/entitlement/repository"
	"github.com/smallbiznis/genstudio/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) entitlementdomain.Checker { return s }),
	fx.Provide(fx.Annotate(
		func(s *service.Service) cache.Purger { return s },
		fx.ResultTags(`group:"cache_purgers"`),
	)),
)
