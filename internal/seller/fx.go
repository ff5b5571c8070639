package seller

import (
	"github.com/openagora/agora/internal/seller/repository"
	"github.com/openagora/agora/internal/seller/service"
	"go.uber.org/fx"
)

var Module = fx.Module("seller.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
