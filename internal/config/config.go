package config

import (
	"flag"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Modes of the weatherstation binary.
const (
	ModeAll     = "all"
	ModePublish = "publish"
	ModeView    = "view"
)

// Renderers.
const (
	RenderWeb  = "web"
	RenderTerm = "term"
)

// Config holds the runtime settings. Values come from defaults, then the
// environment (optionally loaded from .env), then command-line flags.
type Config struct {
	Mode     string
	Variant  string
	Render   string
	Port     string
	Baud     int
	Greedy   bool
	Broker   string
	HTTPAddr string
	LogLevel string
}

// DefaultPort is the serial device used when none is configured.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyACM0"
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Mode:     ModeAll,
		Variant:  "windowed",
		Render:   RenderWeb,
		Port:     DefaultPort(),
		Baud:     9600,
		Broker:   "tcp://localhost:1883",
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

// FromEnv overlays WS_* environment variables on cfg. A missing .env file
// is not an error.
func FromEnv(cfg Config, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "load env file")
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("WS_MODE", &cfg.Mode)
	str("WS_VARIANT", &cfg.Variant)
	str("WS_RENDER", &cfg.Render)
	str("WS_SERIAL_PORT", &cfg.Port)
	str("WS_BROKER", &cfg.Broker)
	str("WS_HTTP_ADDR", &cfg.HTTPAddr)
	str("WS_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("WS_BAUD"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "WS_BAUD=%q", v)
		}
		cfg.Baud = n
	}
	if v, ok := os.LookupEnv("WS_GREEDY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "WS_GREEDY=%q", v)
		}
		cfg.Greedy = b
	}
	return cfg, nil
}

// BindFlags registers flags on fs using cfg as defaults. Parsing fs
// writes straight into cfg.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode: all | publish | view")
	fs.StringVar(&cfg.Variant, "variant", cfg.Variant, "chart variant: growing | windowed")
	fs.StringVar(&cfg.Render, "render", cfg.Render, "renderer: web | term")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "serial port for arduino")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	fs.BoolVar(&cfg.Greedy, "greedy", cfg.Greedy, "consume 4 bytes whenever at least 4 are waiting")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "mqtt broker (publish and view modes)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "dashboard listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModePublish, ModeView:
	default:
		return errors.Errorf("unknown mode %q (must be: all, publish, or view)", c.Mode)
	}
	switch c.Render {
	case RenderWeb, RenderTerm:
	default:
		return errors.Errorf("unknown renderer %q (must be: web or term)", c.Render)
	}
	if c.Mode != ModeView && strings.TrimSpace(c.Port) == "" {
		return errors.New("serial port is required")
	}
	if c.Baud <= 0 {
		return errors.Errorf("invalid baud rate %d", c.Baud)
	}
	return nil
}
