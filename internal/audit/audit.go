package audit

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type fileOptions struct {
	Path string `mapstructure:"path"`
}

// FromConfig builds the audit sink selected by the configuration.
func FromConfig(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}

	switch cfg.Type {
	case "", "memory":
		return NewInMemoryAuditor(), nil
	case "noop":
		return NewNoopAuditor(), nil
	case "file":
		var fo fileOptions
		if err := mapstructure.Decode(cfg.Config, &fo); err != nil {
			return nil, fmt.Errorf("decoding file audit config: %w", err)
		}
		if fo.Path == "" {
			return nil, fmt.Errorf("file audit sink requires 'path'")
		}
		return NewFileAuditor(fo.Path)
	case "http":
		var ho httpAuditorOptions
		if err := mapstructure.Decode(cfg.Config, &ho); err != nil {
			return nil, fmt.Errorf("decoding http audit config: %w", err)
		}
		if ho.URL == "" {
			return nil, fmt.Errorf("http audit sink requires 'url'")
		}
		return NewHTTPAuditor(ho), nil
	default:
		return nil, fmt.Errorf("unknown audit sink type '%s'", cfg.Type)
	}
}
