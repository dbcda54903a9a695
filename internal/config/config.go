package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	WalletStorePostgres = "postgres"
	WalletStoreMemory   = "memory"
)

type Config struct {
	DB       *DBconfig
	RabbitMq *RabbitMqconfig
	Redis    *Redisconfig
	Srv      *Serviceconfig
	App      *Appconfig
	Log      *Loggerconfig
}

type DBconfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	MaxRetries int    `yaml:"max_retries"`
	MaxConns   int    `yaml:"max_conns"`
}

// DSN builds a postgres connection string for pgx.
func (c *DBconfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%v:%v@%v:%v/%v?sslmode=disable&pool_max_conns=%d",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.MaxConns,
	)
}

type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	// Disabled skips the broker entirely; events and notifications are not exchanged.
	Disabled bool `yaml:"disabled"`
}

type Redisconfig struct {
	// Addr empty disables the presence mirror.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Serviceconfig struct {
	RealtimeServicePort string `yaml:"realtime_service"`
	WalletServicePort   string `yaml:"wallet_service"`
}

type Appconfig struct {
	JwtSecret        string        `yaml:"jwt_secret"`
	LocationThrottle time.Duration `yaml:"location_throttle"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	WalletStore      string        `yaml:"wallet_store"`
	Currency         string        `yaml:"currency"`
	// PersistNotifications makes the realtime service record notifications in postgres before delivery.
	PersistNotifications bool `yaml:"persist_notifications"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

// Warner is the subset of the logger used while reading the environment.
type Warner interface {
	Warn(msg string, args ...any)
}

// New reads the configuration from the environment. A .env file in the
// working directory is loaded first when it exists.
func New(log Warner) *Config {
	_ = godotenv.Load()

	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Warn("using default key", "key", key, "default-key", def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			log.Warn("using default key", "key", key, "default-key", def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			log.Warn("cannot use atoi, using default key", "key", key, "default-key", def)
			return def
		}
		return val
	}

	getEnvBool := func(key string, def bool) bool {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseBool(valStr)
		if err != nil {
			log.Warn("cannot parse bool, using default key", "key", key, "default-key", def)
			return def
		}
		return val
	}

	getEnvDuration := func(key string, def time.Duration) time.Duration {
		valStr := os.Getenv(key)
		if valStr == "" {
			log.Warn("using default key", "key", key, "default-key", def.String())
			return def
		}
		val, err := time.ParseDuration(valStr)
		if err != nil || val < 0 {
			log.Warn("cannot parse duration, using default key", "key", key, "default-key", def.String())
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "gride_user"),
			Password:   getEnv("DB_PASSWORD", "gride_pass"),
			Database:   getEnv("DB_NAME", "gride_db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 5),
			MaxConns:   getEnvInt("DB_MAX_CONNS", 10),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    os.Getenv("RABBITMQ_VHOST"),
			Disabled: getEnvBool("RABBITMQ_DISABLED", false),
		},
		Redis: &Redisconfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Srv: &Serviceconfig{
			RealtimeServicePort: getEnv("REALTIME_SERVICE_PORT", "5000"),
			WalletServicePort:   getEnv("WALLET_SERVICE_PORT", "5001"),
		},
		App: &Appconfig{
			JwtSecret:            getEnv("JWT_SECRET", "supersecret"),
			LocationThrottle:     getEnvDuration("LOCATION_THROTTLE", time.Second),
			AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
			WalletStore:          strings.ToLower(getEnv("WALLET_STORE", WalletStorePostgres)),
			Currency:             getEnv("WALLET_CURRENCY", "GYD"),
			PersistNotifications: getEnvBool("PERSIST_NOTIFICATIONS", true),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	return cnf
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
