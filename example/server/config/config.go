package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zitadel/ciba/example/server/storage"
	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/ciba/storage/redis"
	"github.com/zitadel/ciba/pkg/op"
)

const (
	// default port for the http server to run
	DefaultIssuerPort = "9998"

	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sql"
)

type Config struct {
	Port      string                 `yaml:"port" validate:"required"`
	Provider  op.Config              `yaml:"provider"`
	CIBA      ciba.Config            `yaml:"ciba"`
	Store     StoreConfig            `yaml:"store"`
	Tokens    TokenConfig            `yaml:"tokens"`
	UsersFile string                 `yaml:"usersFile"`
	Users     []*storage.User        `yaml:"users" validate:"dive"`
	Clients   []storage.ClientConfig `yaml:"clients" validate:"dive"`
}

type StoreConfig struct {
	Driver string        `yaml:"driver" validate:"oneof=memory redis sql"`
	Redis  *redis.Config `yaml:"redis" validate:"required_if=Driver redis"`
	SQL    *SQLConfig    `yaml:"sql" validate:"required_if=Driver sql"`
}

type SQLConfig struct {
	// DSN of the sqlite database, e.g. "file:ciba.db"
	DSN string `yaml:"dsn" validate:"required"`
}

type TokenConfig struct {
	AccessTokenLifetime time.Duration `yaml:"accessTokenLifetime" validate:"gte=0"`
}

// Default returns the configuration of a local server on DefaultIssuerPort
// with an in-memory store.
func Default() *Config {
	return &Config{
		Port: DefaultIssuerPort,
		Provider: op.Config{
			Issuer:   "http://localhost:" + DefaultIssuerPort,
			Insecure: true,
		},
		CIBA: ciba.DefaultConfig(),
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Tokens: TokenConfig{
			AccessTokenLifetime: storage.DefaultAccessTokenLifetime,
		},
	}
}

// LoadFile reads the YAML file at path over the defaults.
// Environment variables in the file are expanded.
func LoadFile(path string, defaults *Config) (*Config, error) {
	if defaults == nil {
		defaults = Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := *defaults
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// FromEnvVars loads configuration parameters from environment variables.
// If there is no such variable defined, then use default values.
// Secrets are only read from the environment.
func FromEnvVars(defaults *Config) *Config {
	if defaults == nil {
		defaults = &Config{}
	}
	cfg := *defaults
	if value, ok := os.LookupEnv("PORT"); ok {
		cfg.Port = value
	}
	if value, ok := os.LookupEnv("ISSUER"); ok {
		cfg.Provider.Issuer = value
	}
	if value, ok := os.LookupEnv("USERS_FILE"); ok {
		cfg.UsersFile = value
	}
	if value, ok := os.LookupEnv("CIBA_ENCRYPTION_KEY"); ok {
		cfg.CIBA.Notification.EncryptionKey = value
	}
	if value, ok := os.LookupEnv("CIBA_CONTEXT_HASH_KEY"); ok {
		cfg.CIBA.Notification.ContextHashKey = value
	}
	if value, ok := os.LookupEnv("REDIS_ADDRS"); ok {
		redisConfig := cfg.Store.Redis
		if redisConfig == nil {
			redisConfig = new(redis.Config)
		} else {
			copied := *redisConfig
			redisConfig = &copied
		}
		redisConfig.Addrs = strings.Split(value, ",")
		cfg.Store.Redis = redisConfig
	}
	if value, ok := os.LookupEnv("REDIS_PASSWORD"); ok && cfg.Store.Redis != nil {
		redisConfig := *cfg.Store.Redis
		redisConfig.Password = value
		cfg.Store.Redis = &redisConfig
	}
	return &cfg
}

// Validate checks the struct tags, reporting fields by their YAML name,
// and the backchannel authentication policy.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.CIBA.Validate(); err != nil {
		return err
	}
	return op.ValidateIssuer(c.Provider.Issuer, c.Provider.Insecure)
}
