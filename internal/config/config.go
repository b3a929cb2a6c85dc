package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Storage   StorageConfig
	JWT       JWTConfig
	Locks     LocksConfig
	Redis     RedisConfig
	Bootstrap BootstrapConfig
	Expiry    ExpiryConfig
	LogMode   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	// Transactions requires a replica set or sharded cluster.
	Transactions bool
}

// StorageConfig selects the repository backend ("mongo" or "memory")
type StorageConfig struct {
	Driver string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// LocksConfig controls per-record serialization
type LocksConfig struct {
	Driver      string // "local" or "redis"
	TTL         time.Duration
	WaitTimeout time.Duration
}

// RedisConfig holds redis connection settings used by the redis locker
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BootstrapConfig describes the admin account created on first start
type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// ExpiryConfig controls the expiry sweeper
type ExpiryConfig struct {
	Interval time.Duration
}

// Load loads configuration from a .env file, config files and environment variables.
// The path argument is an extra directory searched for config.yaml.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real deployments inject the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is not configured (set JWT_SECRET)")
	}
	switch c.Storage.Driver {
	case "mongo", "memory":
	default:
		return errors.New("storage driver must be mongo or memory")
	}
	switch c.Locks.Driver {
	case "local", "redis":
	default:
		return errors.New("locks driver must be local or redis")
	}
	if c.Locks.Driver == "redis" && c.Redis.Addr == "" {
		return errors.New("redis locks require REDIS_ADDR")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:4200"})
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "insurance")
	v.SetDefault("MongoDB.Transactions", true)
	v.SetDefault("Storage.Driver", "mongo")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 8*60*60) // 8 hours
	v.SetDefault("Locks.Driver", "local")
	v.SetDefault("Locks.TTL", 10*time.Second)
	v.SetDefault("Locks.WaitTimeout", 3*time.Second)
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Bootstrap.AdminName", "")
	v.SetDefault("Bootstrap.AdminEmail", "")
	v.SetDefault("Bootstrap.AdminPassword", "")
	v.SetDefault("Expiry.Interval", time.Hour)
	v.SetDefault("LogMode", "development")
}
