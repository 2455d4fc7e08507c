package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Addr      string
	JWTSecret string

	StoreDriver   string
	SQLITEDsn     string
	PostgresDsn   string
	MongoURI      string
	MongoDatabase string
	MongoRetries  int

	TypingTTL       time.Duration
	TombstoneWindow time.Duration
	SendBuffer      int

	LogDevelopment bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_DSN", "file:chat.db?_pragma=foreign_keys(ON)")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "pairchat")
	v.SetDefault("MONGO_RETRIES", 5)
	v.SetDefault("TYPING_TTL", "3s")
	v.SetDefault("TOMBSTONE_WINDOW", "7m")
	v.SetDefault("SEND_BUFFER", 256)
	v.SetDefault("LOG_DEVELOPMENT", false)
}

// Load reads configuration from the environment. Call godotenv first to pick
// up a .env file.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Addr:            v.GetString("HTTP_ADDR"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		StoreDriver:     v.GetString("STORE_DRIVER"),
		SQLITEDsn:       v.GetString("SQLITE_DSN"),
		PostgresDsn:     v.GetString("POSTGRES_DSN"),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		MongoRetries:    v.GetInt("MONGO_RETRIES"),
		TypingTTL:       v.GetDuration("TYPING_TTL"),
		TombstoneWindow: v.GetDuration("TOMBSTONE_WINDOW"),
		SendBuffer:      v.GetInt("SEND_BUFFER"),
		LogDevelopment:  v.GetBool("LOG_DEVELOPMENT"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDsn == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TypingTTL <= 0 || c.TombstoneWindow <= 0 {
		return fmt.Errorf("TYPING_TTL and TOMBSTONE_WINDOW must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive")
	}
	return nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}
