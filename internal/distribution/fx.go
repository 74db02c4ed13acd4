package distribution

import (
	"github.com/fieldworks/wellbill/internal/distribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("distribution",
	fx.Provide(service.NewService),
)
