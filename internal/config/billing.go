package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// BillingConfig carries the money-movement policy knobs. Amounts are in
// the smallest currency unit throughout the engine.
type BillingConfig struct {
	Currency         string `mapstructure:"currency"`
	DebtDueDays      int    `mapstructure:"debtDueDays"`
	OverdueGraceDays int    `mapstructure:"overdueGraceDays"`
	// SumToleranceUnits bounds the accepted drift between a period total and
	// the sum of its distributions. One smallest currency unit.
	SumToleranceUnits int64 `mapstructure:"sumToleranceUnits"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Currency:          "TRY",
		DebtDueDays:       30,
		OverdueGraceDays:  0,
		SumToleranceUnits: 1,
	}
}

// BillingModule provides the hot-reloading billing policy holder.
var BillingModule = fx.Provide(NewBillingConfigHolder)

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/wellbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WELLBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.debtDueDays", defaults.DebtDueDays)
	v.SetDefault("billing.overdueGraceDays", defaults.OverdueGraceDays)
	v.SetDefault("billing.sumToleranceUnits", defaults.SumToleranceUnits)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder returns a holder pinned to cfg. Used in tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.DebtDueDays <= 0 {
		return errors.New("billing.debtDueDays must be positive")
	}
	if cfg.OverdueGraceDays < 0 {
		return errors.New("billing.overdueGraceDays cannot be negative")
	}
	if cfg.SumToleranceUnits < 0 {
		return errors.New("billing.sumToleranceUnits cannot be negative")
	}
	return nil
}
