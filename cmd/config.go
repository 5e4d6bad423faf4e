package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/semka95/natours/backend/email"
	"github.com/semka95/natours/backend/event"
	"github.com/semka95/natours/backend/payment"
	"github.com/semka95/natours/backend/store"
	"github.com/semka95/natours/backend/upload"
)

// ConfigEnv names the variable holding config file path
const ConfigEnv = "NATOURS_CONFIG"

// Config stores app configuration
type Config struct {
	Server struct {
		Address     string `yaml:"address" env:"SERVER_ADDRESS"`
		Timeout     int    `yaml:"timeout" env:"SERVER_TIMEOUT"`
		Env         string `yaml:"env" env:"NODE_ENV"`
		OtlpAddress string `yaml:"otlp_address" env:"OTLP_ADDRESS"`
		StaticDir   string `yaml:"static_dir" env:"STATIC_DIR"`
		BodyLimit   string `yaml:"body_limit" env:"BODY_LIMIT"`
		BaseURL     string `yaml:"base_url" env:"BASE_URL"`
		Migrate     bool   `yaml:"migrate" env:"MIGRATE"`
	} `yaml:"server"`
	Auth struct {
		KeyID          string        `yaml:"key_id" env:"JWT_KEY_ID"`
		PrivateKeyFile string        `yaml:"private_key_file" env:"JWT_PRIVATE_KEY_FILE"`
		Algorithm      string        `yaml:"algorithm" env:"JWT_ALGORITHM"`
		TokenTTL       time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN"`
		CookieTTLDays  int           `yaml:"cookie_ttl_days" env:"JWT_COOKIE_EXPIRES_IN"`
	} `yaml:"auth"`
	store.MongoConfig `yaml:"mongo"`
	Redis             struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	RateLimit struct {
		Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
		Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	} `yaml:"rate_limit"`
	Email   email.Config   `yaml:"email"`
	Payment payment.Config `yaml:"payment"`
	Kafka   event.Config   `yaml:"kafka"`
	Uploads upload.Config  `yaml:"uploads"`
}

func defaultConfig() *Config {
	cfg := new(Config)
	cfg.Server.Address = ":3000"
	cfg.Server.Timeout = 10
	cfg.Server.Env = "development"
	cfg.Server.StaticDir = "public"
	cfg.Server.BodyLimit = "10K"
	cfg.Auth.Algorithm = "RS256"
	cfg.Auth.TokenTTL = 90 * 24 * time.Hour
	cfg.Auth.CookieTTLDays = 90
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Window = time.Hour
	cfg.Email.Port = 587
	cfg.Payment.Currency = "usd"
	cfg.Kafka.Topic = "natours.events"
	cfg.Uploads.UsersDir = "public/img/users"
	return cfg
}

// Production reports whether app runs in production mode
func (c *Config) Production() bool {
	return c.Server.Env == "production"
}

// CookieTTL returns lifetime of the auth cookie
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.Auth.CookieTTLDays) * 24 * time.Hour
}

// AppConfig reads config from file and creates config struct, environment
// variables override file values. Empty cfgPath skips the file.
func AppConfig(cfgPath string, logger *zap.Logger) (*Config, error) {
	cfg := defaultConfig()

	if cfgPath != "" {
		if err := decodeFile(cfgPath, cfg, logger); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("can't parse environment: %w", err)
	}

	return cfg, nil
}

func decodeFile(cfgPath string, cfg *Config, logger *zap.Logger) error {
	f, err := os.Open(cfgPath)
	if err != nil {
		return fmt.Errorf("can't open config file: %w", err)
	}
	defer func() {
		err := f.Close()
		if err != nil {
			logger.Error("can't close config file", zap.Error(err))
		}
	}()

	decoder := yaml.NewDecoder(f)
	if err = decoder.Decode(cfg); err != nil {
		return fmt.Errorf("can't decode config file: %w", err)
	}
	return nil
}
