package alert

import (
	"github.com/openagora/agora/internal/alert/repository"
	"github.com/openagora/agora/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
