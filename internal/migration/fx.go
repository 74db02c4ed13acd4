package migration

import (
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations target postgres. Other dialects exist for
			// local development and tests, where the ORM schema is enough.
			return conn.AutoMigrate(
				&ownerdomain.Owner{},
				&welldomain.Well{},
				&fielddomain.Field{},
				&fielddomain.FieldOwnership{},
				&irrigationdomain.IrrigationLog{},
				&irrigationdomain.IrrigationFieldUsage{},
				&billingdomain.BillingPeriod{},
				&distributiondomain.Distribution{},
				&debtdomain.Debt{},
				&debtdomain.PaymentHistory{},
				&notificationdomain.Notification{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
