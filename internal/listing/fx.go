package listing

import (
	"github.com/openagora/agora/internal/listing/repository"
	"github.com/openagora/agora/internal/listing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
