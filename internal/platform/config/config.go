package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreJSONL  = "jsonl"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	VaultPath string `mapstructure:"-"`
	DataDir   string `mapstructure:"-"`
	DBPath    string `mapstructure:"-"`

	Store    string        `mapstructure:"store"`
	Timezone string        `mapstructure:"timezone"`
	Tracker  TrackerConfig `mapstructure:"tracker"`
	Advisor  AdvisorConfig `mapstructure:"advisor"`
	Log      LogConfig     `mapstructure:"log"`
	Report   ReportConfig  `mapstructure:"report"`
}

type TrackerConfig struct {
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	FlushThreshold int           `mapstructure:"flush_threshold"`
}

type AdvisorConfig struct {
	// Binary is the advisor plugin executable. Empty disables suggestions.
	Binary  string        `mapstructure:"binary"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type ReportConfig struct {
	Dedupe bool `mapstructure:"dedupe"`
}

// New returns the default configuration rooted at vaultPath.
func New(vaultPath string) (Config, error) {
	if vaultPath == "" {
		return Config{}, fmt.Errorf("vault path is required")
	}
	dataDir := filepath.Join(vaultPath, ".microstep")
	return Config{
		VaultPath: vaultPath,
		DataDir:   dataDir,
		DBPath:    filepath.Join(dataDir, "microstep.db"),
		Store:     StoreJSONL,
		Tracker: TrackerConfig{
			FlushInterval:  5 * time.Second,
			FlushThreshold: 10,
		},
		Advisor: AdvisorConfig{Timeout: 8 * time.Second},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dataDir, "microstep.log"),
		},
		Report: ReportConfig{Dedupe: true},
	}, nil
}

// Load reads microstep.yaml from the vault data dir, the user config dir or
// the working directory, then applies MICROSTEP_* environment overrides.
func Load(vaultPath string) (Config, error) {
	cfg, err := New(vaultPath)
	if err != nil {
		return Config{}, err
	}
	v := newViper(cfg)
	v.SetConfigName("microstep")
	v.SetConfigType("yaml")
	v.AddConfigPath(cfg.DataDir)
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "microstep"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v, cfg)
}

// LoadFromFile reads configuration from an explicit file.
func LoadFromFile(vaultPath, path string) (Config, error) {
	cfg, err := New(vaultPath)
	if err != nil {
		return Config{}, err
	}
	v := newViper(cfg)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(v, cfg)
}

// Location resolves the timezone used to partition events by day. Load
// rejects unknown names, so the Local fallback only covers hand-built configs.
func (c Config) Location() *time.Location {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MICROSTEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", cfg.Store)
	v.SetDefault("timezone", cfg.Timezone)
	v.SetDefault("tracker.flush_interval", cfg.Tracker.FlushInterval)
	v.SetDefault("tracker.flush_threshold", cfg.Tracker.FlushThreshold)
	v.SetDefault("advisor.binary", cfg.Advisor.Binary)
	v.SetDefault("advisor.timeout", cfg.Advisor.Timeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("report.dedupe", cfg.Report.Dedupe)
	return v
}

func decode(v *viper.Viper, cfg Config) (Config, error) {
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	switch cfg.Store {
	case StoreJSONL, StoreSQLite, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.Tracker.FlushThreshold <= 0 {
		return Config{}, fmt.Errorf("tracker.flush_threshold must be positive")
	}
	if cfg.Tracker.FlushInterval <= 0 {
		return Config{}, fmt.Errorf("tracker.flush_interval must be positive")
	}
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return Config{}, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
		}
	}
	return cfg, nil
}
