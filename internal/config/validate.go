package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct-tag constraints. Cross-field
// invariants that `validate` tags can't express are checked separately.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry.enabled is true")
	}

	seen := make(map[uint64]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		if seen[d.DeviceID] {
			return fmt.Errorf("duplicate device_id %d in devices", d.DeviceID)
		}
		seen[d.DeviceID] = true
	}

	return nil
}
