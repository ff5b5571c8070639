package product

import (
	"github.com/openagora/agora/internal/product/repository"
	"github.com/openagora/agora/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
