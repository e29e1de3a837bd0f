package dispatch

import (
	"github.com/smallbiznis/bonos/internal/dispatch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatch.service",
	fx.Provide(service.New),
)
