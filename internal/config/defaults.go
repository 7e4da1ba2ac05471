package config

import "time"

// ApplyDefaults fills in any unspecified configuration fields with sensible
// defaults, following the teacher's "zero values become defaults, explicit
// values are preserved" convention.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	for i := range cfg.Devices {
		if cfg.Devices[i].PipeCount == 0 {
			cfg.Devices[i].PipeCount = 4
		}
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = "pidevmgrd"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config with every default applied and one
// simulated device (device_id 1) enabled, so pidevmgrd runs out of the box.
func GetDefaultConfig() *Config {
	cfg := &Config{
		ShutdownTimeout: 10 * time.Second,
		Devices: []DeviceConfig{
			{DeviceID: 1, PipeCount: 4},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
