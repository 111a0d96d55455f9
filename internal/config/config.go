package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no config path is given.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address    string `yaml:"address"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Availability struct {
		NoAvailMeansAlwaysAvail bool `yaml:"no_avail_means_always_avail"`
	} `yaml:"availability"`

	Checks struct {
		Enabled         []string `yaml:"enabled"`
		IntervalMinutes int      `yaml:"interval_minutes"`
		// ManualRunsPerMinute limits POST /api/checks/run.
		ManualRunsPerMinute int `yaml:"manual_runs_per_minute"`
	} `yaml:"checks"`

	Kit struct {
		// BundleDeletePolicy is "cascade" or "set_null".
		BundleDeletePolicy string `yaml:"bundle_delete_policy"`
	} `yaml:"kit"`

	Export struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"export"`

	Convention struct {
		Path string `yaml:"path"`
	} `yaml:"convention"`
}

// BackupConfig controls periodic copies of the database file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/conprog.db"
	}
	if c.Checks.IntervalMinutes <= 0 {
		c.Checks.IntervalMinutes = 15
	}
	if c.Checks.ManualRunsPerMinute <= 0 {
		c.Checks.ManualRunsPerMinute = 6
	}
	if c.Kit.BundleDeletePolicy == "" {
		c.Kit.BundleDeletePolicy = "cascade"
	}
	if c.Export.Path == "" {
		c.Export.Path = "data/checks.xlsx"
	}
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 24 * 60 * 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Kit.BundleDeletePolicy {
	case "cascade", "set_null":
	default:
		return fmt.Errorf("kit.bundle_delete_policy: unknown policy '%s', expected cascade or set_null", c.Kit.BundleDeletePolicy)
	}

	for name, port := range map[string]int{
		"monitoring.health_check_port": c.Monitoring.HealthCheckPort,
		"monitoring.prometheus_port":   c.Monitoring.PrometheusPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %d", name, port)
		}
	}

	seen := make(map[string]bool)
	for i, name := range c.Checks.Enabled {
		if name == "" {
			return fmt.Errorf("checks.enabled[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("checks.enabled[%d]: duplicate check '%s'", i, name)
		}
		seen[name] = true
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative")
	}

	return nil
}

// ValidateChecks reports enabled check names that are not in known.
func (c *Config) ValidateChecks(known []string) error {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	for i, name := range c.Checks.Enabled {
		if !set[name] {
			return fmt.Errorf("checks.enabled[%d]: unknown check '%s'", i, name)
		}
	}
	return nil
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Checks.IntervalMinutes) * time.Minute
}

func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
