package owner

import (
	"github.com/fieldworks/wellbill/internal/owner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("owner",
	fx.Provide(service.NewService),
)
