package providers

import (
	"github.com/smallbiznis/bonos/internal/providers/email"
	"github.com/smallbiznis/bonos/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
