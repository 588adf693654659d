package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"vlist-tui/internal/performance"
	"vlist-tui/internal/virtual"
)

// Config holds the list and application settings stored as JSON.
type Config struct {
	ItemCount         int      `json:"item_count"`
	EstimatedItemSize float64  `json:"estimated_item_size"`
	Gap               float64  `json:"gap"`
	Overscan          int      `json:"overscan"`
	FrameInterval     Duration `json:"frame_interval"`
	PrefetchDistance  int      `json:"prefetch_distance"`
	PrefetchInterval  Duration `json:"prefetch_interval"`
	RetryInterval     Duration `json:"retry_interval"`
	CacheSize         int      `json:"cache_size"`
	WheelDelta        int      `json:"wheel_delta"`
	Theme             string   `json:"theme,omitempty"`
	BackendURL        string   `json:"backend_url,omitempty"`
	ListenAddr        string   `json:"listen_addr,omitempty"`
	LogFile           string   `json:"log_file,omitempty"`
}

const filename = "config.json"

var (
	ErrInvalidTheme   = errors.New("unknown theme")
	ErrInvalidSetting = errors.New("invalid setting")
)

// Duration is a time.Duration written as a string such as "16ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		ItemCount:         10000,
		EstimatedItemSize: 4,
		Gap:               1,
		Overscan:          virtual.DefaultOverscan,
		FrameInterval:     Duration(16 * time.Millisecond),
		PrefetchDistance:  10,
		PrefetchInterval:  Duration(200 * time.Millisecond),
		RetryInterval:     Duration(time.Second),
		CacheSize:         500,
		WheelDelta:        3,
		Theme:             "dark",
	}
}

// DefaultPath returns <user config dir>/vlist/config.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filename
	}
	return filepath.Join(dir, "vlist", filename)
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults; a malformed or invalid one is an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Defaults(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every setting.
func (c Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	switch {
	case c.FrameInterval <= 0:
		return fmt.Errorf("frame_interval %v: %w", time.Duration(c.FrameInterval), ErrInvalidSetting)
	case c.PrefetchInterval < 0:
		return fmt.Errorf("prefetch_interval %v: %w", time.Duration(c.PrefetchInterval), ErrInvalidSetting)
	case c.RetryInterval <= 0:
		return fmt.Errorf("retry_interval %v: %w", time.Duration(c.RetryInterval), ErrInvalidSetting)
	case c.PrefetchDistance < 0:
		return fmt.Errorf("prefetch_distance %d: %w", c.PrefetchDistance, ErrInvalidSetting)
	case c.CacheSize <= 0:
		return fmt.Errorf("cache_size %d: %w", c.CacheSize, ErrInvalidSetting)
	case c.WheelDelta <= 0:
		return fmt.Errorf("wheel_delta %d: %w", c.WheelDelta, ErrInvalidSetting)
	}
	switch c.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("%q: %w", c.Theme, ErrInvalidTheme)
	}
	return nil
}

// EngineConfig returns the virtualizer settings.
func (c Config) EngineConfig() virtual.Config {
	return virtual.Config{
		ItemCount:         c.ItemCount,
		EstimatedItemSize: c.EstimatedItemSize,
		Gap:               c.Gap,
		Overscan:          c.Overscan,
	}
}

// ScrollConfig returns the list component settings.
func (c Config) ScrollConfig() performance.VirtualScrollConfig {
	return performance.VirtualScrollConfig{
		Engine:           c.EngineConfig(),
		PrefetchDistance: c.PrefetchDistance,
		WheelDelta:       c.WheelDelta,
		FrameInterval:    time.Duration(c.FrameInterval),
		PrefetchInterval: time.Duration(c.PrefetchInterval),
		EnableCache:      true,
		CacheSize:        c.CacheSize,
	}
}
