package pricing

import (
	"github.com/openagora/agora/internal/pricing/repository"
	"github.com/openagora/agora/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
