package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineBrowser = "browser"
	EngineDirect  = "direct"
	EngineSidecar = "sidecar"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	AddSource  bool   `yaml:"add_source"`
}

type SidecarConfig struct {
	Command        string        `yaml:"command"`
	Args           []string      `yaml:"args"`
	InitTimeout    time.Duration `yaml:"init_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRestarts    int           `yaml:"max_restarts"`
}

type EngineConfig struct {
	Kind           string        `yaml:"kind"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	ChromePath     string        `yaml:"chrome_path"`
	Headful        bool          `yaml:"headful"`
	MaxPageBytes   int64         `yaml:"max_page_bytes"`
	DenyPatterns   []string      `yaml:"deny_patterns"`
	Sidecar        SidecarConfig `yaml:"sidecar"`
}

type JournalConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	// MaxAge bounds how long entries are kept. Zero keeps everything.
	MaxAge  time.Duration `yaml:"max_age"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

type Config struct {
	// Path is the file the config was read from, empty for defaults only.
	Path string `yaml:"-"`

	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Journal JournalConfig `yaml:"journal"`
	Watch   WatchConfig   `yaml:"watch"`
}

func BaseDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".crawl-worker")
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Engine: EngineConfig{
			Kind:           EngineBrowser,
			DefaultTimeout: 60 * time.Second,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			MaxPageBytes:   10 * 1024 * 1024,
			DenyPatterns:   []string{},
			Sidecar: SidecarConfig{
				InitTimeout:    30 * time.Second,
				RequestTimeout: 60 * time.Second,
				MaxRestarts:    3,
			},
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(BaseDir(), "journal.db"),
			MaxAge:  30 * 24 * time.Hour,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load layers the YAML file at path (if any) and CRAWL_WORKER_* environment
// variables over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		cfg.Path = abs
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CRAWL_WORKER_ENGINE"); v != "" {
		c.Engine.Kind = strings.ToLower(v)
	}
	if v := getenv("CRAWL_WORKER_CHROME_PATH"); v != "" {
		c.Engine.ChromePath = v
	}
	if v := getenv("CRAWL_WORKER_SIDECAR"); v != "" {
		fields := strings.Fields(v)
		c.Engine.Sidecar.Command = fields[0]
		c.Engine.Sidecar.Args = fields[1:]
	}
	if v := getenv("CRAWL_WORKER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("CRAWL_WORKER_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("CRAWL_WORKER_JOURNAL"); v != "" {
		if v == "off" {
			c.Journal.Enabled = false
		} else {
			c.Journal.Enabled = true
			c.Journal.Path = v
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Engine.Kind {
	case EngineBrowser, EngineDirect:
	case EngineSidecar:
		if c.Engine.Sidecar.Command == "" {
			errs = append(errs, errors.New("engine.sidecar.command is required for the sidecar engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine kind %q", c.Engine.Kind))
	}

	if c.Engine.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("engine.default_timeout must be positive"))
	}
	if c.Engine.MaxPageBytes <= 0 {
		errs = append(errs, errors.New("engine.max_page_bytes must be positive"))
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path is required when the journal is enabled"))
	}
	if c.Journal.MaxAge < 0 {
		errs = append(errs, errors.New("journal.max_age must not be negative"))
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 300 * time.Millisecond
	}

	return errors.Join(errs...)
}

func (c *Config) EnsureDirectories() error {
	if !c.Journal.Enabled {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.Journal.Path), 0700)
}
