package auth

import (
	"github.com/openagora/agora/internal/auth/repository"
	"github.com/openagora/agora/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
