package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RegulationConfig carries the tunable regulation parameters. The health
// score weights are deliberately NOT here: they are fixed policy constants
// owned by the dashboard package.
type RegulationConfig struct {
	// DefaultLowStockThreshold applies to inventory batches created without
	// an explicit threshold.
	DefaultLowStockThreshold int64 `mapstructure:"defaultLowStockThreshold"`

	// ExpiryWindowDays controls how close to expiry a batch must be before
	// it is flagged as expiring.
	ExpiryWindowDays int `mapstructure:"expiryWindowDays"`

	// SatisfactionFallback is the neutral seller-satisfaction value (0-100)
	// used when no seller rating data exists yet.
	SatisfactionFallback float64 `mapstructure:"satisfactionFallback"`

	// SnapshotTTLSeconds bounds dashboard recomputation load. Zero disables
	// the cache; staleness up to the TTL is accepted.
	SnapshotTTLSeconds int `mapstructure:"snapshotTTLSeconds"`
}

func DefaultRegulationConfig() RegulationConfig {
	return RegulationConfig{
		DefaultLowStockThreshold: 10,
		ExpiryWindowDays:         7,
		SatisfactionFallback:     85,
		SnapshotTTLSeconds:       30,
	}
}

func (c RegulationConfig) ExpiryWindow() time.Duration {
	return time.Duration(c.ExpiryWindowDays) * 24 * time.Hour
}

func (c RegulationConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

type RegulationHolder struct {
	current atomic.Value // holds RegulationConfig
}

func NewRegulationHolder() (*RegulationHolder, error) {
	v := viper.New()

	v.SetConfigName("regulation")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/agora/config") // Volume-mounted config
	v.AddConfigPath("/etc/agora")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRegulationConfig()
	v.SetDefault("regulation.defaultLowStockThreshold", defaults.DefaultLowStockThreshold)
	v.SetDefault("regulation.expiryWindowDays", defaults.ExpiryWindowDays)
	v.SetDefault("regulation.satisfactionFallback", defaults.SatisfactionFallback)
	v.SetDefault("regulation.snapshotTTLSeconds", defaults.SnapshotTTLSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no config file: defaults apply
	}

	var cfg RegulationConfig
	if err := v.UnmarshalKey("regulation", &cfg); err != nil {
		return nil, err
	}
	if err := validateRegulationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RegulationHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RegulationConfig
		if err := v.UnmarshalKey("regulation", &updated); err != nil {
			log.Printf("[regulation-config] reload failed: %v", err)
			return
		}
		if err := validateRegulationConfig(updated); err != nil {
			log.Printf("[regulation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[regulation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRegulationHolder wraps a fixed config. Used by tests and by
// callers that do not want file watching.
func NewStaticRegulationHolder(cfg RegulationConfig) (*RegulationHolder, error) {
	if err := validateRegulationConfig(cfg); err != nil {
		return nil, err
	}
	holder := &RegulationHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *RegulationHolder) Get() RegulationConfig {
	return h.current.Load().(RegulationConfig)
}

func validateRegulationConfig(cfg RegulationConfig) error {
	if cfg.DefaultLowStockThreshold < 0 {
		return errors.New("regulation.defaultLowStockThreshold cannot be negative")
	}
	if cfg.ExpiryWindowDays < 1 {
		return errors.New("regulation.expiryWindowDays must be at least 1")
	}
	if cfg.SatisfactionFallback < 0 || cfg.SatisfactionFallback > 100 {
		return errors.New("regulation.satisfactionFallback must be within 0..100")
	}
	if cfg.SnapshotTTLSeconds < 0 {
		return errors.New("regulation.snapshotTTLSeconds cannot be negative")
	}
	return nil
}
