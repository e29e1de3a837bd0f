package voucher

import (
	"github.com/smallbiznis/bonos/internal/voucher/repository"
	"github.com/smallbiznis/bonos/internal/voucher/service"
	"go.uber.org/fx"
)

var Module = fx.Module("voucher.store",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
