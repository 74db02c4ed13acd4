package field

import (
	"github.com/fieldworks/wellbill/internal/field/repository"
	"github.com/fieldworks/wellbill/internal/field/service"
	"go.uber.org/fx"
)

var Module = fx.Module("field",
	fx.Provide(
		repository.NewOwnershipSource,
		service.NewService,
	),
)
