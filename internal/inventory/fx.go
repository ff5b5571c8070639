package inventory

import (
	"github.com/openagora/agora/internal/inventory/repository"
	"github.com/openagora/agora/internal/inventory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
