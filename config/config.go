// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	// minProductionSecretLen is the shortest JWT secret accepted in production.
	minProductionSecretLen = 32
)

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("jwt.secret (JWT_SECRET) is required")

// --- Sub-structs mirroring the YAML layout ---

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type ReportsConfig struct {
	// PhoneRegion is the ISO region used for contact numbers without a
	// country prefix, e.g. "NG". Empty disables regional parsing.
	PhoneRegion string `mapstructure:"phoneRegion"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// Enabled reports whether photo uploads can be served.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// --- Main Config ---

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	S3       S3Config       `mapstructure:"s3"`
}

// IsProduction reports whether detailed diagnostics must be hidden.
func (c Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// LoadConfig reads config.yaml from path (optional) and overrides it with
// environment variables. The result must be able to serve the API, so a JWT
// secret is required.
func LoadConfig(path string) (Config, error) {
	config, err := load(path)
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

// LoadStorageConfig loads the same configuration as LoadConfig but only
// validates what offline tools that touch the database need. The JWT
// section may be empty.
func LoadStorageConfig(path string) (Config, error) {
	config, err := load(path)
	if err != nil {
		return config, err
	}
	return config, config.ValidateStorage()
}

func load(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "4000")
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "file:wte.db?cache=shared")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.dbName", "wte")
	v.SetDefault("jwt.expiration", "168h")
	v.SetDefault("cors.allowedOrigins", []string{"*"})

	v.AutomaticEnv()

	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.env", "APP_ENV")
	v.BindEnv("server.shutdownTimeout", "SERVER_SHUTDOWN_TIMEOUT")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.dbName", "MONGO_DBNAME")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	v.BindEnv("cors.allowedOrigins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("reports.phoneRegion", "REPORTS_PHONE_REGION")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")

	// A missing config.yaml is fine; environment variables are enough.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	config.CORS.AllowedOrigins = splitOrigins(config.CORS.AllowedOrigins)
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	return config, nil
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.IsProduction() && len(c.JWT.Secret) < minProductionSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d bytes in production", minProductionSecretLen)
	}
	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("jwt.expiration must be positive, got %s", c.JWT.Expiration)
	}
	return c.ValidateStorage()
}

// ValidateStorage checks the environment and database settings only.
func (c Config) ValidateStorage() error {
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown server.env %q", c.Server.Env)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.DBName == "" {
			return errors.New("mongo.uri and mongo.dbName are required for driver \"mongo\"")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
