package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CatalogEntry is one eligible (brand, size, design) combination with its rim variants.
type CatalogEntry struct {
	Brand    string   `mapstructure:"brand"`
	Size     string   `mapstructure:"size"`
	Design   string   `mapstructure:"design"`
	RimSizes []string `mapstructure:"rimSizes"`
}

type CatalogConfig struct {
	Entries []CatalogEntry `mapstructure:"entries"`
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Entries: []CatalogEntry{
			{Brand: "HAOHUA", Size: "15", Design: "HT1", RimSizes: []string{"22.5"}},
			{Brand: "HAOHUA", Size: "15", Design: "HD2", RimSizes: []string{"22.5"}},
			{Brand: "HAOHUA", Size: "11", Design: "HT1", RimSizes: []string{"22.5", "24.5"}},
		},
	}
}

type CatalogConfigHolder struct {
	current atomic.Value // holds CatalogConfig
}

// NewCatalogConfigHolder reads catalog.yml (or CATALOG_PATH) and keeps it fresh on file changes.
func NewCatalogConfigHolder(cfg Config) (*CatalogConfigHolder, error) {
	v := viper.New()

	if cfg.CatalogPath != "" {
		v.SetConfigFile(cfg.CatalogPath)
	} else {
		v.SetConfigName("catalog")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/bonos/config")
		v.AddConfigPath("/etc/bonos")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return NewStaticCatalogConfigHolder(DefaultCatalogConfig()), nil
	}

	var catalog CatalogConfig
	if err := v.UnmarshalKey("catalog", &catalog); err != nil {
		return nil, err
	}
	if err := validateCatalogConfig(catalog); err != nil {
		return nil, err
	}

	holder := NewStaticCatalogConfigHolder(catalog)
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CatalogConfig
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Printf("[catalog-config] reload failed: %v", err)
			return
		}
		if err := validateCatalogConfig(updated); err != nil {
			log.Printf("[catalog-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[catalog-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCatalogConfigHolder wraps a fixed catalog.
func NewStaticCatalogConfigHolder(catalog CatalogConfig) *CatalogConfigHolder {
	holder := &CatalogConfigHolder{}
	holder.current.Store(catalog)
	return holder
}

func (h *CatalogConfigHolder) Get() CatalogConfig {
	return h.current.Load().(CatalogConfig)
}

func validateCatalogConfig(cfg CatalogConfig) error {
	if len(cfg.Entries) == 0 {
		return errors.New("catalog.entries cannot be empty")
	}
	for i, entry := range cfg.Entries {
		if strings.TrimSpace(entry.Brand) == "" || strings.TrimSpace(entry.Size) == "" || strings.TrimSpace(entry.Design) == "" {
			return fmt.Errorf("catalog.entries[%d]: brand, size and design are required", i)
		}
	}
	return nil
}
