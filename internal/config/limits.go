package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Limits are runtime knobs that can change without a restart.
type Limits struct {
	BulkMaxEntries int `mapstructure:"bulkMaxEntries"`
	MaxPageSize    int `mapstructure:"maxPageSize"`
}

func DefaultLimits() Limits {
	return Limits{
		BulkMaxEntries: 1000,
		MaxPageSize:    500,
	}
}

type LimitsHolder struct {
	current atomic.Value // holds Limits
}

// NewStaticLimitsHolder returns a holder that never reloads.
func NewStaticLimitsHolder(limits Limits) *LimitsHolder {
	holder := &LimitsHolder{}
	holder.current.Store(limits)
	return holder
}

// NewLimitsHolder reads crm.yml and keeps watching it. Defaults apply when
// the file does not exist; an invalid reload is logged and ignored.
func NewLimitsHolder(log *zap.Logger) (*LimitsHolder, error) {
	log = log.Named("config.limits")
	v := viper.New()

	v.SetConfigName("crm")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/crm/config")
	v.AddConfigPath("/etc/crm")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLimits()
	v.SetDefault("limits.bulkMaxEntries", defaults.BulkMaxEntries)
	v.SetDefault("limits.maxPageSize", defaults.MaxPageSize)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := readLimits(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticLimitsHolder(cfg)
	if !fileFound {
		log.Info("no limits file found, using defaults",
			zap.Int("bulk_max_entries", cfg.BulkMaxEntries),
			zap.Int("max_page_size", cfg.MaxPageSize),
		)
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readLimits(v)
		if err != nil {
			log.Warn("invalid limits ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("limits reloaded",
			zap.String("file", e.Name),
			zap.Int("bulk_max_entries", updated.BulkMaxEntries),
			zap.Int("max_page_size", updated.MaxPageSize),
		)
	})
	v.WatchConfig()

	return holder, nil
}

func (h *LimitsHolder) Get() Limits {
	return h.current.Load().(Limits)
}

func readLimits(v *viper.Viper) (Limits, error) {
	// Unmarshal merges defaults key by key, UnmarshalKey would not.
	var doc struct {
		Limits Limits `mapstructure:"limits"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return Limits{}, err
	}
	if err := validateLimits(doc.Limits); err != nil {
		return Limits{}, err
	}
	return doc.Limits, nil
}

func validateLimits(cfg Limits) error {
	if cfg.BulkMaxEntries <= 0 {
		return errors.New("limits.bulkMaxEntries must be positive")
	}
	if cfg.MaxPageSize <= 0 {
		return errors.New("limits.maxPageSize must be positive")
	}
	return nil
}
