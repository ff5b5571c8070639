package oversight

import "go.uber.org/fx"

var Module = fx.Module("oversight",
	fx.Provide(New),
)
