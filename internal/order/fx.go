package order

import (
	"github.com/openagora/agora/internal/order/repository"
	"github.com/openagora/agora/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
