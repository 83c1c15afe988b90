package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Token    TokenConfig    `mapstructure:"token"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Bank     BankConfig     `mapstructure:"bank"`
	Callback CallbackConfig `mapstructure:"callback"`
	Redis    RedisConfig    `mapstructure:"redis"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	// Driver is "postgres" (lib/pq) or "pgx" (pgx stdlib).
	Driver             string        `mapstructure:"driver"`
	DatabaseURL        string        `mapstructure:"database_url"`
	MaxOpenConnection  int           `mapstructure:"max_open_connection"`
	MaxIdleConnection  int           `mapstructure:"max_idle_connection"`
	ConnectionLifetime time.Duration `mapstructure:"connection_lifetime"`
}

type TokenConfig struct {
	AuthToken string `mapstructure:"auth_token"`
}

type LoggerConfig struct {
	LoggerLevel string `mapstructure:"logger_level"`
}

type BankConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	MerchantID  string        `mapstructure:"merchant_id"`
	Secret      string        `mapstructure:"secret"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Currency    string        `mapstructure:"currency"`
}

type CallbackConfig struct {
	Secret          string `mapstructure:"secret"`
	ApplyUnverified bool   `mapstructure:"apply_unverified"`
}

type RedisConfig struct {
	// Addr empty disables the idempotency middleware.
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.read_timeout":     10 * time.Second,
	"server.write_timeout":    60 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,

	"db.driver":              "postgres",
	"db.database_url":        "",
	"db.max_open_connection": 15,
	"db.max_idle_connection": 10,
	"db.connection_lifetime": time.Hour,

	"token.auth_token": "",

	"logger.logger_level": "info",

	"bank.base_url":     "",
	"bank.merchant_id":  "",
	"bank.secret":       "",
	"bank.timeout":      15 * time.Second,
	"bank.max_attempts": 3,
	"bank.retry_delay":  2 * time.Second,
	"bank.currency":     "UZS",

	"callback.secret":           "",
	"callback.apply_unverified": false,

	"redis.addr":         "",
	"redis.password":     "",
	"redis.db":           0,
	"redis.cache_ttl":    24 * time.Hour,
	"redis.lock_timeout": 60 * time.Second,
}

// Load reads config.yaml from the working directory or ./internal/config.
func Load() (*Config, error) {
	return LoadFrom(".", "./internal/config")
}

// LoadFrom reads config.yaml from the first of paths that has one. Every key
// can be overridden from the environment, e.g. bank.base_url by BANK_BASE_URL.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("db.database_url", "DB_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	config.File = v.ConfigFileUsed()

	return &config, nil
}

// Validate reports every setting the API server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.DatabaseURL == "" {
		errs = append(errs, errors.New("db.database_url is required"))
	}
	if c.Token.AuthToken == "" {
		errs = append(errs, errors.New("token.auth_token is required"))
	}
	if c.Bank.BaseURL == "" {
		errs = append(errs, errors.New("bank.base_url is required"))
	}
	if c.Bank.MerchantID == "" {
		errs = append(errs, errors.New("bank.merchant_id is required"))
	}
	if c.Bank.Secret == "" {
		errs = append(errs, errors.New("bank.secret is required"))
	}
	if c.Callback.Secret != "" && c.Callback.Secret == c.Bank.Secret {
		errs = append(errs, errors.New("callback.secret must differ from bank.secret"))
	}
	return errors.Join(errs...)
}
