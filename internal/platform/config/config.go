package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minSecretLen = 32

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"user"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	Name     string `env:"DB_NAME" envDefault:"identity_db"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// ConnString returns DATABASE_URL when set, otherwise a key/value DSN
// assembled from the DB_* variables.
func (c DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" sslmode=" + c.SSLMode
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"6s"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// IdentityConfig configures the token-issuing identity service.
type IdentityConfig struct {
	APIPort    string        `env:"API_PORT" envDefault:"8081"`
	JWTSecret  string        `env:"JWT_SECRET,required"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	DatabaseConfig
	RedisConfig
	RateLimitConfig
	LogConfig
}

func (c *IdentityConfig) validate() error {
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.RateLimitConfig.Capacity < 1 {
		c.RateLimitConfig.Capacity = 1
	}
	if c.RateLimitConfig.RefillInterval <= 0 {
		c.RateLimitConfig.RefillInterval = time.Second
	}
	return nil
}

// AdminConfig configures the resource-owning admin service.
type AdminConfig struct {
	APIPort            string        `env:"ADMIN_PORT" envDefault:"8082"`
	AuthServiceURL     string        `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8081"`
	AuthValidatePath   string        `env:"AUTH_SERVICE_VALIDATE_PATH" envDefault:"/api/auth/validate"`
	AuthServiceTimeout time.Duration `env:"AUTH_SERVICE_TIMEOUT" envDefault:"5s"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	DatabaseConfig
	LogConfig
}

func (c *AdminConfig) validate() error {
	u, err := url.Parse(c.AuthServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AUTH_SERVICE_URL %q is not an absolute URL", c.AuthServiceURL)
	}
	if c.AuthServiceTimeout <= 0 {
		return errors.New("AUTH_SERVICE_TIMEOUT must be positive")
	}
	return nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
}

// LoadIdentity reads the identity service configuration from the environment.
func LoadIdentity() (*IdentityConfig, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[IdentityConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse identity config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAdmin reads the admin service configuration from the environment.
func LoadAdmin() (*AdminConfig, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[AdminConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse admin config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
