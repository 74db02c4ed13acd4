package debt

import (
	"github.com/fieldworks/wellbill/internal/debt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("debt",
	fx.Provide(service.NewService),
)
