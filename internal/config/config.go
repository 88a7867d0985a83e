package config

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	Logger    LoggerConfig    `yaml:"logger"`
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	SiteURL   string          `yaml:"site_url" env:"SITE_URL" env-default:"http://localhost:3000"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Settings  SettingsConfig  `yaml:"settings"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	JSON   bool   `yaml:"json"`
	Source bool   `yaml:"source"`
}

type HTTPConfig struct {
	Port              int           `yaml:"port" env-default:"3000"`
	Timeout           time.Duration `yaml:"timeout" env-default:"15s"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env-default:"5s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env-default:"10s"`

	// TrustedProxies may set X-Forwarded-For; everybody else is keyed by
	// the socket address.
	TrustedProxies []string `yaml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES" env-separator:","`
}

type BackendConfig struct {
	BaseURL  string        `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"10s"`
	Language string        `yaml:"language" env-default:"kh"`
}

type SessionConfig struct {
	AccessTTL    time.Duration `yaml:"access_ttl" env-default:"75m"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl" env-default:"168h"`
	RememberTTL  time.Duration `yaml:"remember_ttl" env-default:"720h"`
	FlagTTL      time.Duration `yaml:"flag_ttl" env-default:"30m"`
	Leeway       time.Duration `yaml:"leeway" env-default:"120s"`
	Secure       bool          `yaml:"secure"`
	CookieSecret string        `yaml:"cookie_secret" env:"COOKIE_SECRET"`

	// PreviousCookieSecrets still open cookies during a secret rotation.
	PreviousCookieSecrets []string `yaml:"previous_cookie_secrets" env:"COOKIE_SECRETS_PREVIOUS" env-separator:","`
}

type CacheConfig struct {
	Driver     string `yaml:"driver" env-default:"memory"`
	Prefix     string `yaml:"prefix" env-default:"ims"`
	MaxEntries int    `yaml:"max_entries" env-default:"10000"`
}

type RedisConfig struct {
	Host      string `yaml:"host" env-default:"localhost"`
	Port      string `yaml:"port" env-default:"6379"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	Database  int    `yaml:"database"`
	ConnRetry int    `yaml:"conn_retry" env-default:"5"`
}

type SettingsConfig struct {
	// DefaultsOnly serves the built-in settings without calling the backend.
	DefaultsOnly bool `yaml:"defaults_only"`
}

type RateLimitConfig struct {
	SigninPerMinute float64 `yaml:"signin_per_minute" env-default:"5"`
}

const masked = "******"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// LogValue implements slog.LogValuer. Secrets are masked.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.Group("logger",
			slog.String("level", c.Logger.Level),
			slog.Bool("json", c.Logger.JSON),
			slog.Bool("source", c.Logger.Source),
		),
		slog.Group("http",
			slog.Int("port", c.HTTP.Port),
			slog.Duration("timeout", c.HTTP.Timeout),
			slog.Any("trusted_proxies", c.HTTP.TrustedProxies),
		),
		slog.Group("backend",
			slog.String("base_url", c.Backend.BaseURL),
			slog.Duration("timeout", c.Backend.Timeout),
			slog.String("language", c.Backend.Language),
		),
		slog.String("site_url", c.SiteURL),
		slog.Group("session",
			slog.Duration("access_ttl", c.Session.AccessTTL),
			slog.Duration("refresh_ttl", c.Session.RefreshTTL),
			slog.Duration("remember_ttl", c.Session.RememberTTL),
			slog.Bool("secure", c.Session.Secure),
			slog.String("cookie_secret", mask(c.Session.CookieSecret)),
			slog.Int("previous_cookie_secrets", len(c.Session.PreviousCookieSecrets)),
		),
		slog.Group("cache",
			slog.String("driver", c.Cache.Driver),
			slog.String("prefix", c.Cache.Prefix),
			slog.Int("max_entries", c.Cache.MaxEntries),
		),
		slog.Group("redis",
			slog.String("host", c.Redis.Host),
			slog.String("port", c.Redis.Port),
			slog.String("password", mask(c.Redis.Password)),
			slog.Int("database", c.Redis.Database),
		),
		slog.Bool("settings_defaults_only", c.Settings.DefaultsOnly),
		slog.Float64("signin_per_minute", c.RateLimit.SigninPerMinute),
	)
}

func MustLoadByPath(configPath string) *Config {

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg

}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is required")
	}
	return MustLoadByPath(path)
}

// fetchConfigPath returns the path of the config file from the environment variable or comand line flag.
// Priority: command line flag > environment variable > default value
// Default value: empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to the config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
