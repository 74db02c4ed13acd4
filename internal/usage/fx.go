package usage

import (
	"github.com/fieldworks/wellbill/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.aggregator",
	fx.Provide(service.NewService),
)
