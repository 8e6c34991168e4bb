package config

import "errors"

type ObservabilityConfig struct {
	ServiceName string         `koanf:"service_name"`
	Environment string         `koanf:"environment"`
	NewRelic    NewRelicConfig `koanf:"new_relic"`
}

type NewRelicConfig struct {
	Enabled    bool   `koanf:"enabled"`
	LicenseKey string `koanf:"license_key"`
	AppName    string `koanf:"app_name"`
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: "newsreport",
		NewRelic: NewRelicConfig{
			AppName: "newsreport",
		},
	}
}

func (c *ObservabilityConfig) Validate() error {
	if c.NewRelic.Enabled && c.NewRelic.LicenseKey == "" {
		return errors.New("new_relic.license_key is required when new_relic.enabled is set")
	}
	return nil
}
