package store

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type boltConfig struct {
	Path string `mapstructure:"path"`
}

// FromConfig builds the request store selected by the configuration.
func FromConfig(cfg config.StoreConfig) (core.RequestStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewInMemoryRequestStore(), nil
	case "bolt":
		var bc boltConfig
		if err := mapstructure.Decode(cfg.Config, &bc); err != nil {
			return nil, fmt.Errorf("decoding bolt store config: %w", err)
		}
		if bc.Path == "" {
			bc.Path = "requests.db"
		}
		return NewBoltRequestStore(bc.Path)
	default:
		return nil, fmt.Errorf("unknown store type '%s'", cfg.Type)
	}
}
