package billingperiod

import (
	"github.com/fieldworks/wellbill/internal/billingperiod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingperiod",
	fx.Provide(service.NewService),
)
