package audit

import (
	"github.com/openagora/agora/internal/audit/repository"
	"github.com/openagora/agora/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
