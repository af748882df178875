package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mediabed/mediabed/database"
	mediabedhttp "github.com/mediabed/mediabed/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for mediabed.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Database database.Config         `mapstructure:"database"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Telegram TelegramConfig          `mapstructure:"telegram"`
	Auth     AuthConfig              `mapstructure:"auth"`
	CORS     mediabedhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// Domain is the host stable media URLs are minted under and
	// canonicalized against on lookup.
	Domain    string `mapstructure:"domain" validate:"required,hostname"`
	AdminPath string `mapstructure:"admin_path" validate:"required"`
	StaticDir string `mapstructure:"static_dir"`
}

// CacheConfig holds edge-cache configuration.
type CacheConfig struct {
	MaxEntries  int           `mapstructure:"max_entries" validate:"min=1"`
	PositiveTTL time.Duration `mapstructure:"positive_ttl" validate:"min=0"`
	NegativeTTL time.Duration `mapstructure:"negative_ttl" validate:"min=0"`
}

// TelegramConfig holds the blob-store credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" validate:"required"`
	ChatID   string `mapstructure:"chat_id" validate:"required"`
	BaseURL  string `mapstructure:"base_url"`
}

// AuthConfig holds authentication configuration. RequireReadAuth
// additionally protects the landing page and uploads; the admin and
// mutation endpoints are always protected.
type AuthConfig struct {
	Username        string `mapstructure:"username" validate:"required"`
	Password        string `mapstructure:"password" validate:"required"`
	RequireReadAuth bool   `mapstructure:"require_read_auth"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type": "database.type",
	"db-dsn":  "database.dsn",
	"port":    "server.port",
	"domain":  "server.domain",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.domain", "")
	v.SetDefault("server.admin_path", "admin")
	v.SetDefault("server.static_dir", "./static")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "mediabed.db")
	v.SetDefault("database.tables.media", "media")
	v.SetDefault("database.tables.folders", "folders")

	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("cache.positive_ttl", 24*time.Hour)
	v.SetDefault("cache.negative_ttl", 10*time.Minute)

	// Empty defaults so the required keys are visible to AutomaticEnv;
	// validation still rejects them when left unset.
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")

	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.require_read_auth", false)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("MEDIABED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
