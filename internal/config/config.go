package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode" validate:"oneof=debug release test"`
	Port       int    `mapstructure:"port" validate:"min=1,max=65535"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret" validate:"required,min=16"`
	LogLevel   string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`

	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=1024"`
	SendQueue    int           `mapstructure:"send_queue" validate:"min=1"`
	SlowMember   string        `mapstructure:"slow_member" validate:"oneof=kick drop"`
	PingPeriod   time.Duration `mapstructure:"ping_period" validate:"gt=0,ltfield=PongWait"`
	PongWait     time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	WriteWait    time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	StoreTimeout time.Duration `mapstructure:"store_timeout" validate:"gt=0"`

	RateLimit    int           `mapstructure:"rate_limit" validate:"min=0"`
	RateInterval time.Duration `mapstructure:"rate_interval" validate:"gt=0"`

	BadgerPath     string `mapstructure:"badger_path" validate:"required_without=BadgerInMemory"`
	BadgerInMemory bool   `mapstructure:"badger_in_memory"`
	MediaRoot      string `mapstructure:"media_root" validate:"required"`
	MediaURL       string `mapstructure:"media_url" validate:"required,startswith=/"`

	DisplayTimezone string `mapstructure:"display_timezone" validate:"required"`
}

// Location is the zone history timestamps are rendered in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DisplayTimezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me-please-0123456789")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("send_queue", 32)
	v.SetDefault("slow_member", "kick")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("rate_interval", "1s")
	v.SetDefault("badger_path", "./data/badger")
	v.SetDefault("badger_in_memory", false)
	v.SetDefault("media_root", "./data/media")
	v.SetDefault("media_url", "/media/")
	v.SetDefault("display_timezone", "UTC")
}

// Load reads config/config.{CONFIG_ENV}.yaml, then CHAT_* environment overrides.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("media_root", cfg.MediaRoot).Msg("config ready")
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid config: display_timezone: %w", err)
	}
	return nil
}
