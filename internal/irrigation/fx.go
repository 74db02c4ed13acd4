package irrigation

import (
	"github.com/fieldworks/wellbill/internal/irrigation/repository"
	"github.com/fieldworks/wellbill/internal/irrigation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("irrigation",
	fx.Provide(
		repository.NewUsageSource,
		service.NewService,
	),
)
