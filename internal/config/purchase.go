package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PurchasePolicy holds the purchase validation bounds and retry limits.
// Amounts are expressed in FCFA.
type PurchasePolicy struct {
	MinAmount             int64 `mapstructure:"min_amount"`
	MaxAmount             int64 `mapstructure:"max_amount"`
	AmountStep            int64 `mapstructure:"amount_step"`
	MeterMinDigits        int   `mapstructure:"meter_min_digits"`
	MeterMaxDigits        int   `mapstructure:"meter_max_digits"`
	MaxIdentifierAttempts int   `mapstructure:"max_identifier_attempts"`
	RateLimitPerMinute    int   `mapstructure:"rate_limit_per_minute"`
}

func DefaultPurchasePolicy() PurchasePolicy {
	return PurchasePolicy{
		MinAmount:             500,
		MaxAmount:             1_000_000,
		AmountStep:            50,
		MeterMinDigits:        8,
		MeterMaxDigits:        12,
		MaxIdentifierAttempts: 5,
		RateLimitPerMinute:    30,
	}
}

type PurchasePolicyHolder struct {
	current atomic.Value // holds PurchasePolicy
}

// NewStaticPurchasePolicyHolder returns a holder that never reloads.
func NewStaticPurchasePolicyHolder(policy PurchasePolicy) *PurchasePolicyHolder {
	holder := &PurchasePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewPurchasePolicyHolder(cfg Config, log *zap.Logger) (*PurchasePolicyHolder, error) {
	v := viper.New()

	if cfg.PurchaseFile != "" {
		v.SetConfigFile(cfg.PurchaseFile)
	} else {
		v.SetConfigName("purchase")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/woyofal")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WOYOFAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPurchasePolicy()
	v.SetDefault("purchase.min_amount", defaults.MinAmount)
	v.SetDefault("purchase.max_amount", defaults.MaxAmount)
	v.SetDefault("purchase.amount_step", defaults.AmountStep)
	v.SetDefault("purchase.meter_min_digits", defaults.MeterMinDigits)
	v.SetDefault("purchase.meter_max_digits", defaults.MeterMaxDigits)
	v.SetDefault("purchase.max_identifier_attempts", defaults.MaxIdentifierAttempts)
	v.SetDefault("purchase.rate_limit_per_minute", defaults.RateLimitPerMinute)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := decodePurchasePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPurchasePolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("config.purchase")
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePurchasePolicy(v)
		if err != nil {
			log.Warn("purchase policy reload ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("purchase policy reloaded", zap.String("file", filepath.Base(e.Name)))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *PurchasePolicyHolder) Get() PurchasePolicy {
	return h.current.Load().(PurchasePolicy)
}

// decodePurchasePolicy reads key by key so defaults and WOYOFAL_PURCHASE_*
// variables fill whatever the file leaves out.
func decodePurchasePolicy(v *viper.Viper) (PurchasePolicy, error) {
	policy := PurchasePolicy{
		MinAmount:             v.GetInt64("purchase.min_amount"),
		MaxAmount:             v.GetInt64("purchase.max_amount"),
		AmountStep:            v.GetInt64("purchase.amount_step"),
		MeterMinDigits:        v.GetInt("purchase.meter_min_digits"),
		MeterMaxDigits:        v.GetInt("purchase.meter_max_digits"),
		MaxIdentifierAttempts: v.GetInt("purchase.max_identifier_attempts"),
		RateLimitPerMinute:    v.GetInt("purchase.rate_limit_per_minute"),
	}
	if err := policy.Validate(); err != nil {
		return PurchasePolicy{}, err
	}
	return policy, nil
}

func (p PurchasePolicy) Validate() error {
	switch {
	case p.MinAmount <= 0:
		return errors.New("purchase.min_amount must be positive")
	case p.MaxAmount < p.MinAmount:
		return errors.New("purchase.max_amount must be >= purchase.min_amount")
	case p.AmountStep <= 0:
		return errors.New("purchase.amount_step must be positive")
	case p.MeterMinDigits <= 0 || p.MeterMaxDigits < p.MeterMinDigits:
		return fmt.Errorf("purchase meter digits range %d-%d is invalid", p.MeterMinDigits, p.MeterMaxDigits)
	case p.MaxIdentifierAttempts <= 0:
		return errors.New("purchase.max_identifier_attempts must be positive")
	case p.RateLimitPerMinute < 0:
		return errors.New("purchase.rate_limit_per_minute cannot be negative")
	}
	return nil
}
