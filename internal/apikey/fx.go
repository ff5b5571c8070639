package apikey

import (
	"github.com/openagora/agora/internal/apikey/repository"
	"github.com/openagora/agora/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
