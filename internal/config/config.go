// Package config loads server settings from defaults, an optional YAML file,
// REDEYE_MCP_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/redeye-mcp/internal/imaging"
	"github.com/ironsheep/redeye-mcp/internal/redeye"
)

// EnvPrefix prefixes every environment override, e.g. REDEYE_MCP_LOG_LEVEL.
const EnvPrefix = "REDEYE_MCP"

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DetectConfig holds the default candidate thresholds for identify calls.
type DetectConfig struct {
	GreenSensitivity float64 `mapstructure:"green_sensitivity"`
	BlueSensitivity  float64 `mapstructure:"blue_sensitivity"`
	MinRedValue      int     `mapstructure:"min_red_value"`
}

// HighlightConfig holds the default overlay colour as "#RRGGBB".
type HighlightConfig struct {
	Color string `mapstructure:"color"`
}

// TapConfig configures tap-to-fix.
type TapConfig struct {
	AreaDivisor int     `mapstructure:"area_divisor"`
	MinPixels   int     `mapstructure:"min_pixels"`
	MinRatio    float64 `mapstructure:"min_ratio"`
	MinDensity  float64 `mapstructure:"min_density"`
}

// AutoConfig configures rectangle auto-correction.
type AutoConfig struct {
	MinPixels  int     `mapstructure:"min_pixels"`
	MinRatio   float64 `mapstructure:"min_ratio"`
	MinDensity float64 `mapstructure:"min_density"`
	MaxEyes    int     `mapstructure:"max_eyes"`
}

// Config is the complete server configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Detect    DetectConfig    `mapstructure:"detect"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Tap       TapConfig       `mapstructure:"tap"`
	Auto      AutoConfig      `mapstructure:"auto"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags adds the --config, --log-level and --log-format flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("detect.green_sensitivity", redeye.DefaultGreenSensitivity)
	v.SetDefault("detect.blue_sensitivity", redeye.DefaultBlueSensitivity)
	v.SetDefault("detect.min_red_value", redeye.DefaultMinRedValue)

	v.SetDefault("highlight.color", imaging.FormatHexColor(redeye.DefaultHighlight))

	tap := redeye.DefaultTapOptions()
	v.SetDefault("tap.area_divisor", tap.AreaDivisor)
	v.SetDefault("tap.min_pixels", tap.MinPixels)
	v.SetDefault("tap.min_ratio", tap.MinRatio)
	v.SetDefault("tap.min_density", tap.MinDensity)

	auto := redeye.DefaultAutoOptions()
	v.SetDefault("auto.min_pixels", auto.MinPixels)
	v.SetDefault("auto.min_ratio", auto.MinRatio)
	v.SetDefault("auto.min_density", auto.MinDensity)
	v.SetDefault("auto.max_eyes", auto.MaxEyes)
}

// Load builds the configuration. path names an optional YAML file and may be
// empty. flags may be nil; only flags that were set on the command line
// override the other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return cfg
}

// Validate checks settings that would otherwise fail later at request time.
// Detection thresholds are not checked; odd values only change what is found.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: %q must be text or json", c.Log.Format)
	}
	if _, err := c.HighlightColor(); err != nil {
		return fmt.Errorf("highlight.color: %w", err)
	}
	if c.Tap.AreaDivisor <= 0 {
		return fmt.Errorf("tap.area_divisor: must be positive, got %d", c.Tap.AreaDivisor)
	}
	if c.Tap.MinPixels < 0 {
		return fmt.Errorf("tap.min_pixels: must not be negative, got %d", c.Tap.MinPixels)
	}
	if c.Auto.MaxEyes <= 0 {
		return fmt.Errorf("auto.max_eyes: must be positive, got %d", c.Auto.MaxEyes)
	}
	if c.Auto.MinPixels < 0 {
		return fmt.Errorf("auto.min_pixels: must not be negative, got %d", c.Auto.MinPixels)
	}
	return nil
}

// HighlightColor parses the configured overlay colour.
func (c *Config) HighlightColor() (color.NRGBA, error) {
	return imaging.ParseHexColor(c.Highlight.Color)
}

// Thresholds returns the configured detection thresholds.
func (c *Config) Thresholds() redeye.Thresholds {
	return redeye.Thresholds{
		GreenSensitivity: c.Detect.GreenSensitivity,
		BlueSensitivity:  c.Detect.BlueSensitivity,
		MinRedValue:      c.Detect.MinRedValue,
	}
}

// TapOptions returns the tap-to-fix settings. Tap searches with a fixed green
// sensitivity of 2 and the configured blue and minimum red levels.
func (c *Config) TapOptions() redeye.TapOptions {
	t := c.Thresholds()
	t.GreenSensitivity = redeye.DefaultTapOptions().Thresholds.GreenSensitivity
	return redeye.TapOptions{
		AreaDivisor: c.Tap.AreaDivisor,
		Thresholds:  t,
		MinPixels:   c.Tap.MinPixels,
		MinRatio:    c.Tap.MinRatio,
		MinDensity:  c.Tap.MinDensity,
	}
}

// AutoOptions returns the rectangle auto-correction settings.
func (c *Config) AutoOptions() redeye.AutoOptions {
	return redeye.AutoOptions{
		Thresholds: c.Thresholds(),
		MinPixels:  c.Auto.MinPixels,
		MinRatio:   c.Auto.MinRatio,
		MinDensity: c.Auto.MinDensity,
		MaxEyes:    c.Auto.MaxEyes,
	}
}
