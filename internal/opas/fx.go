package opas

import (
	"github.com/openagora/agora/internal/opas/repository"
	"github.com/openagora/agora/internal/opas/service"
	"go.uber.org/fx"
)

var Module = fx.Module("opas.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
