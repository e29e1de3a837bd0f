package qrtoken

import (
	"github.com/smallbiznis/bonos/internal/qrtoken/repository"
	"github.com/smallbiznis/bonos/internal/qrtoken/service"
	"go.uber.org/fx"
)

var Module = fx.Module("qrtoken.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.ProvideSealer),
	fx.Provide(service.New),
)
