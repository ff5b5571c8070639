package compliance

import (
	"github.com/openagora/agora/internal/compliance/repository"
	"github.com/openagora/agora/internal/compliance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("compliance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
