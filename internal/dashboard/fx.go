package dashboard

import (
	"github.com/openagora/agora/internal/cache"
	"github.com/openagora/agora/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(cache.NewSnapshotCache),
	fx.Provide(service.New),
)
