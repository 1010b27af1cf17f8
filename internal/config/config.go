package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	fileName  = "storyloom"
	envPrefix = "STORYLOOM"
)

type Config struct {
	Reveal    RevealConfig    `mapstructure:"reveal"`
	Generator GeneratorConfig `mapstructure:"generator"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Log       LogConfig       `mapstructure:"log"`
}

type RevealConfig struct {
	Grain    string        `mapstructure:"grain"`
	Interval time.Duration `mapstructure:"interval"`
	Strategy string        `mapstructure:"strategy"`
	Width    int           `mapstructure:"width"`
}

type GeneratorConfig struct {
	Type    string        `mapstructure:"type"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TTSConfig struct {
	Type      string  `mapstructure:"type"`
	Voice     string  `mapstructure:"voice"`
	Speed     float64 `mapstructure:"speed"`
	Volume    float64 `mapstructure:"volume"`
	CachePath string  `mapstructure:"cache_path"`
	URL       string  `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("reveal.grain", "char")
	v.SetDefault("reveal.interval", 30*time.Millisecond)
	v.SetDefault("reveal.strategy", "flags")
	v.SetDefault("reveal.width", 80)

	v.SetDefault("generator.type", "library")
	v.SetDefault("generator.url", "")
	v.SetDefault("generator.timeout", 60*time.Second)

	v.SetDefault("tts.type", "auto") // Auto-select best engine
	v.SetDefault("tts.voice", "default")
	v.SetDefault("tts.speed", 1.0)
	v.SetDefault("tts.volume", 0.8)
	v.SetDefault("tts.cache_path", "")
	v.SetDefault("tts.url", "")

	v.SetDefault("log.level", "warn")
}

// New returns a viper instance that reads storyloom.yaml from
// $HOME/.storyloom or the working directory and STORYLOOM_* variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.storyloom")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// Load reads the config file if there is one and decodes every key.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debug("config loaded")
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

func (c *Config) Validate() error {
	if c.Reveal.Interval <= 0 {
		return fmt.Errorf("reveal.interval must be positive, got %s", c.Reveal.Interval)
	}
	if c.Reveal.Width < 0 {
		return fmt.Errorf("reveal.width must not be negative, got %d", c.Reveal.Width)
	}
	if c.TTS.Speed < 0 || c.TTS.Volume < 0 {
		return fmt.Errorf("tts.speed and tts.volume must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}
