// Package config loads the YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"qtrak/internal/models"
)

// Config is the process configuration. Every field has a working default
// so the tool runs without a config file.
type Config struct {
	DBPath        string        `yaml:"db"`
	ActivityLimit int           `yaml:"activity_limit"`
	SeedRules     []models.Rule `yaml:"seed_rules"`
}

// DefaultRules are installed on first run when the config supplies none.
var DefaultRules = []models.Rule{
	{
		Name:        "production_return_48h",
		Family:      models.FamilyProductionReturn,
		Threshold:   2,
		Unit:        models.UnitDays,
		Severity:    models.SeverityWarning,
		Active:      true,
		Description: "Returned to production for more than two days",
	},
	{
		Name:        "target_shipment_24h",
		Family:      models.FamilyTargetShipment,
		Threshold:   24,
		Unit:        models.UnitHours,
		Severity:    models.SeverityWarning,
		Active:      true,
		Description: "Target ship date within 24 hours",
	},
	{
		Name:        "inspection_warning_3d",
		Family:      models.FamilyInspectionDate,
		Threshold:   3,
		Unit:        models.UnitDays,
		Severity:    models.SeverityWarning,
		Active:      true,
		Description: "Inspection date within three days",
	},
	{
		Name:        "inspection_critical_24h",
		Family:      models.FamilyInspectionDate,
		Threshold:   24,
		Unit:        models.UnitHours,
		Severity:    models.SeverityCritical,
		Active:      true,
		Description: "Inspection date within 24 hours",
	},
}

// Load reads the config at path. A missing file returns defaults; a broken
// file is an error.
func Load(path string) (Config, error) {
	cfg := Config{
		DBPath:        "qtrak.db",
		ActivityLimit: 200,
		SeedRules:     DefaultRules,
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	for _, r := range cfg.SeedRules {
		if err := r.Validate(); err != nil {
			return cfg, fmt.Errorf("config rule %q: %w", r.Name, err)
		}
	}
	return cfg, nil
}
