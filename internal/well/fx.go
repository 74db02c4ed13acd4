package well

import (
	"github.com/fieldworks/wellbill/internal/well/service"
	"go.uber.org/fx"
)

var Module = fx.Module("well",
	fx.Provide(service.NewService),
)
