package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir    string   `json:"data_dir" yaml:"data_dir"`
	DBPath     string   `json:"db_path" yaml:"db_path"`
	WebEnabled bool     `json:"web_enabled" yaml:"web_enabled"`
	WebPort    int      `json:"web_port" yaml:"web_port"`
	LogLevel   string   `json:"log_level" yaml:"log_level"`
	LogFormat  string   `json:"log_format" yaml:"log_format"`
	Pages      []string `json:"pages" yaml:"pages"`

	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Push      PushConfig      `json:"push" yaml:"push"`
}

type SchedulerConfig struct {
	// Interval is a Go duration string, e.g. "30s".
	Interval  string `json:"interval" yaml:"interval"`
	AutoStart bool   `json:"auto_start" yaml:"auto_start"`
	// QuietStart and QuietEnd bound the window (HH:MM, local time) in which
	// sweeps are skipped. Empty disables the window.
	QuietStart string `json:"quiet_start" yaml:"quiet_start"`
	QuietEnd   string `json:"quiet_end" yaml:"quiet_end"`
}

type PushConfig struct {
	VAPIDPublicKey  string `json:"vapid_public_key" yaml:"vapid_public_key"`
	VAPIDPrivateKey string `json:"vapid_private_key" yaml:"vapid_private_key"`
	Subject         string `json:"subject" yaml:"subject"`
	TTL             int    `json:"ttl" yaml:"ttl"`
}

const defaultSchedulerInterval = 30 * time.Second

func Default() Config {
	return Config{
		WebEnabled: true,
		WebPort:    3000,
		LogLevel:   "info",
		LogFormat:  "text",
		Pages:      []string{"finance", "gardening", "health"},
		Scheduler: SchedulerConfig{
			Interval:  defaultSchedulerInterval.String(),
			AutoStart: true,
		},
		Push: PushConfig{
			Subject: "mailto:lazyday@localhost",
			TTL:     3600,
		},
	}
}

// SchedulerInterval parses Scheduler.Interval, falling back to 30s when the
// value is empty, malformed or not positive.
func (c Config) SchedulerInterval() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Scheduler.Interval))
	if err != nil || d <= 0 {
		return defaultSchedulerInterval
	}
	return d
}

func (c Config) Validate() error {
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("web_port out of range: %d", c.WebPort)
	}
	for _, value := range []string{c.Scheduler.QuietStart, c.Scheduler.QuietEnd} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("invalid quiet window time %q: %w", value, err)
		}
	}
	if (c.Scheduler.QuietStart == "") != (c.Scheduler.QuietEnd == "") {
		return fmt.Errorf("quiet_start and quiet_end must be set together")
	}
	return nil
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazyday", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else {
		if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
