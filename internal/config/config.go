// ABOUTME: Runtime configuration from flags, environment and a catalog file
// ABOUTME: Flags win over ZEROHZ_* environment variables, which win over defaults
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/zerohz/zerohz-go/pkg/audio/output"
	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

// Config holds all runtime configuration
type Config struct {
	// Sounds
	SoundsDir     string
	CatalogFile   string
	CacheDir      string
	DefaultVolume float64
	Ramp          time.Duration
	Catalog       []mixer.Sound
	Volumes       map[string]float64

	// Output
	Backend    string
	SampleRate int
	Channels   int
	Chimes     bool

	// Timer
	Mode           string
	TargetSeconds  int
	WarningSeconds int

	// Host
	Name       string
	RemoteAddr string
	Advertise  bool
	LogFile    string
	LogLevel   string
	NoTUI      bool
}

// Default returns the built-in defaults overlaid with ZEROHZ_* variables
func Default() Config {
	return Config{
		SoundsDir:     envStr("ZEROHZ_SOUNDS_DIR", "sounds"),
		CatalogFile:   envStr("ZEROHZ_CATALOG", ""),
		CacheDir:      envStr("ZEROHZ_CACHE_DIR", ""),
		DefaultVolume: envFloat("ZEROHZ_VOLUME", mixer.DefaultVolume),
		Ramp:          envDuration("ZEROHZ_RAMP", mixer.DefaultRampTimeConstant),

		Backend:    envStr("ZEROHZ_BACKEND", "oto"),
		SampleRate: envInt("ZEROHZ_SAMPLE_RATE", output.DefaultFormat.SampleRate),
		Channels:   envInt("ZEROHZ_CHANNELS", output.DefaultFormat.Channels),
		Chimes:     envBool("ZEROHZ_CHIMES", true),

		Mode:           envStr("ZEROHZ_TIMER_MODE", timer.Countdown.String()),
		TargetSeconds:  envInt("ZEROHZ_TIMER_TARGET", timer.DefaultTargetSeconds),
		WarningSeconds: envInt("ZEROHZ_TIMER_WARNING", timer.DefaultWarningSeconds),

		Name:       envStr("ZEROHZ_NAME", ""),
		RemoteAddr: envStr("ZEROHZ_REMOTE_ADDR", ""),
		Advertise:  envBool("ZEROHZ_ADVERTISE", false),
		LogFile:    envStr("ZEROHZ_LOG_FILE", "zerohz.log"),
		LogLevel:   envStr("ZEROHZ_LOG_LEVEL", "info"),
		NoTUI:      envBool("ZEROHZ_NO_TUI", false),
	}
}

// RegisterFlags binds every setting to fs, using the current values as defaults
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.SoundsDir, "sounds-dir", c.SoundsDir, "Directory holding the sound files")
	fs.StringVar(&c.CatalogFile, "catalog", c.CatalogFile, "TOML catalog file (default: built-in catalog)")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "Download cache for remote sounds")
	fs.Float64Var(&c.DefaultVolume, "volume", c.DefaultVolume, "Starting volume of every sound (0-1)")
	fs.DurationVar(&c.Ramp, "ramp", c.Ramp, "Time constant of volume and mute ramps")

	fs.StringVar(&c.Backend, "backend", c.Backend, "Audio backend: oto, malgo or null")
	fs.IntVar(&c.SampleRate, "sample-rate", c.SampleRate, "Output sample rate")
	fs.IntVar(&c.Channels, "channels", c.Channels, "Output channel count")
	fs.BoolVar(&c.Chimes, "chimes", c.Chimes, "Play timer warning and completion chimes")

	fs.StringVar(&c.Mode, "mode", c.Mode, "Timer mode: stopwatch or countdown")
	fs.IntVar(&c.TargetSeconds, "target", c.TargetSeconds, "Countdown target in seconds")
	fs.IntVar(&c.WarningSeconds, "warning", c.WarningSeconds, "Remaining seconds at which the warning fires")

	fs.StringVar(&c.Name, "name", c.Name, "Friendly name (default: hostname-zerohz)")
	fs.StringVar(&c.RemoteAddr, "remote", c.RemoteAddr, "Listen address for websocket remote control (empty disables)")
	fs.BoolVar(&c.Advertise, "advertise", c.Advertise, "Advertise the remote control endpoint via mDNS")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Log file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&c.NoTUI, "no-tui", c.NoTUI, "Disable TUI, use streaming logs instead")
}

// Load parses args over the defaults and resolves the catalog
func Load(name string, args []string) (Config, error) {
	c := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := c.resolve(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// resolve fills the catalog, the name and validates the result
func (c *Config) resolve() error {
	if c.CatalogFile != "" {
		cat, err := LoadCatalog(c.CatalogFile)
		if err != nil {
			return err
		}
		c.Catalog = cat.Sounds
		c.Volumes = cat.Volumes
		if cat.SoundsDir != "" {
			c.SoundsDir = cat.SoundsDir
		}
	} else {
		c.Catalog = DefaultCatalog()
	}

	if c.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		c.Name = fmt.Sprintf("%s-zerohz", hostname)
	}

	return c.Validate()
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %v", c.DefaultVolume)
	}
	if c.Ramp < 0 {
		return fmt.Errorf("ramp must not be negative, got %v", c.Ramp)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if _, err := timer.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.TargetSeconds < 0 {
		return fmt.Errorf("target must not be negative, got %d", c.TargetSeconds)
	}
	if c.WarningSeconds < 0 {
		return fmt.Errorf("warning must not be negative, got %d", c.WarningSeconds)
	}
	switch c.Backend {
	case "oto", "malgo", "null":
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	return validateSounds(c.Catalog)
}

// TimerMode returns the parsed timer mode
func (c *Config) TimerMode() timer.Mode {
	m, _ := timer.ParseMode(c.Mode)
	return m
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
