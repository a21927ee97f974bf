package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"shift-redeemer/internal/configutil"
)

const (
	DefaultDir      = ".config/shift_redeemer"
	DefaultBaseUrl  = "https://shift.gearboxsoftware.com"
	DefaultPlatform = "steam"

	cookieFileName  = "shift_cookies.json"
	historyFileName = "shift_codes.txt"
	logFileName     = "shift_redeemer.log"
	configFileName  = "config.json5"
)

// DefaultSources are the public pages codes are harvested from.
var DefaultSources = []string{
	"https://www.ign.com/wikis/borderlands-4/Borderlands_4_SHiFT_Codes",
	"https://mentalmars.com/game-news/borderlands-4-shift-codes/",
}

// Config holds everything a run needs, it is built once at startup and handed to each
// component's constructor.
type Config struct {
	// Dir holds the cookie file, the history file, the log file and the optional config.json5.
	Dir string `json:"-"`

	BaseUrl  string   `json:"base_url"`
	Platform string   `json:"platform"`
	DryRun   bool     `json:"dry_run"`
	Sources  []string `json:"sources"`
	// HarvestTimeoutSeconds bounds each source page fetch.
	HarvestTimeoutSeconds int `json:"harvest_timeout_seconds"`
}

// Default returns the configuration the program runs with when nothing is overridden.
func Default() Config {
	return Config{
		Dir:                   DefaultDir,
		BaseUrl:               DefaultBaseUrl,
		Platform:              DefaultPlatform,
		DryRun:                false,
		Sources:               append([]string(nil), DefaultSources...),
		HarvestTimeoutSeconds: 10,
	}
}

// Load creates dir if needed and merges <dir>/config.json5 (and config.local.json5) over the
// defaults. Missing files are not an error.
func Load(dir string) (Config, error) {
	cfg := Default()
	cfg.Dir = dir

	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return cfg, fmt.Errorf("create config dir: %w", err)
	}

	override, err := configutil.ReadConfig[Config](filepath.Join(dir, configFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if override.BaseUrl != "" {
			cfg.BaseUrl = override.BaseUrl
		}
		if override.Platform != "" {
			cfg.Platform = override.Platform
		}
		if override.DryRun {
			cfg.DryRun = true
		}
		if len(override.Sources) > 0 {
			cfg.Sources = override.Sources
		}
		if override.HarvestTimeoutSeconds > 0 {
			cfg.HarvestTimeoutSeconds = override.HarvestTimeoutSeconds
		}
	}

	return cfg, cfg.Validate()
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("config dir is required")
	}
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	base, err := url.Parse(c.BaseUrl)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid base url: %q", c.BaseUrl)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source url is required")
	}
	for _, src := range c.Sources {
		parsed, err := url.Parse(src)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid source url: %q", src)
		}
	}
	if c.HarvestTimeoutSeconds < 1 {
		return fmt.Errorf("harvest timeout must be at least 1 second")
	}
	return nil
}

func (c Config) HarvestTimeout() time.Duration {
	return time.Duration(c.HarvestTimeoutSeconds) * time.Second
}

func (c Config) CookieFile() string {
	return filepath.Join(c.Dir, cookieFileName)
}

func (c Config) HistoryFile() string {
	return filepath.Join(c.Dir, historyFileName)
}

func (c Config) LogFile() string {
	return filepath.Join(c.Dir, logFileName)
}
