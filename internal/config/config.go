// Package config loads service settings from defaults, an optional JSON
// file, the environment (and a .env file) and command-line flags, in that
// order of increasing priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

type Config struct {
	RunAddr          string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	GRPCAddr         string        `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" json:"http_read_timeout" validate:"gt=0"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" json:"http_write_timeout" validate:"gt=0"`
	LogLevel         string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	AuthSecret      string        `env:"AUTH_SECRET" json:"auth_secret"`
	AuthTokenMaxAge time.Duration `env:"AUTH_TOKEN_MAX_AGE" json:"auth_token_max_age" validate:"gte=0"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," json:"cors_origins" validate:"dive,corsorigins"`
	TrustedSubnet   string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	KeyPrefix           string        `env:"OBJECT_KEY_PREFIX" json:"object_key_prefix" validate:"required,endswith=/"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DatabaseDriver      string        `env:"DATABASE_DRIVER" json:"database_driver" validate:"oneof=pgx postgres"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout" validate:"gt=0"`
	SQLitePath          string        `env:"SQLITE_PATH" json:"sqlite_path"`
	S3Endpoint          string        `env:"S3_ENDPOINT" json:"s3_endpoint"`
	S3AccessKey         string        `env:"S3_ACCESS_KEY" json:"s3_access_key" validate:"required_with=S3Endpoint"`
	S3SecretKey         string        `env:"S3_SECRET_KEY" json:"s3_secret_key" validate:"required_with=S3Endpoint"`
	S3Bucket            string        `env:"S3_BUCKET" json:"s3_bucket" validate:"required_with=S3Endpoint"`
	S3UseSSL            bool          `env:"S3_USE_SSL" json:"s3_use_ssl"`

	RedisURL        string        `env:"REDIS_URL" json:"redis_url" validate:"omitempty,url"`
	ThreadCacheTTL  time.Duration `env:"THREAD_CACHE_TTL" json:"thread_cache_ttl" validate:"gt=0"`
	ScanConcurrency int           `env:"SCAN_CONCURRENCY" json:"scan_concurrency" validate:"min=1,max=64"`
	DocWriteRetries int           `env:"DOC_WRITE_RETRIES" json:"doc_write_retries" validate:"min=0,max=20"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	HTTPReadTimeout:     10 * time.Second,
	HTTPWriteTimeout:    30 * time.Second,
	LogLevel:            "info",
	KeyPrefix:           "thesis/",
	DatabaseDriver:      "pgx",
	DBConnectionTimeout: 10 * time.Second,
	ThreadCacheTTL:      30 * time.Second,
	ScanConcurrency:     8,
	DocWriteRetries:     5,
}

// UnmarshalJSON reads durations written as Go duration strings ("30s").
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		HTTPReadTimeout     *string `json:"http_read_timeout"`
		HTTPWriteTimeout    *string `json:"http_write_timeout"`
		AuthTokenMaxAge     *string `json:"auth_token_max_age"`
		DBConnectionTimeout *string `json:"db_connection_timeout"`
		ThreadCacheTTL      *string `json:"thread_cache_ttl"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value *string
		dst   *time.Duration
	}{
		{"http_read_timeout", aux.HTTPReadTimeout, &c.HTTPReadTimeout},
		{"http_write_timeout", aux.HTTPWriteTimeout, &c.HTTPWriteTimeout},
		{"auth_token_max_age", aux.AuthTokenMaxAge, &c.AuthTokenMaxAge},
		{"db_connection_timeout", aux.DBConnectionTimeout, &c.DBConnectionTimeout},
		{"thread_cache_ttl", aux.ThreadCacheTTL, &c.ThreadCacheTTL},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

// StorageType picks the object-store backend: a DSN selects PostgreSQL, an
// S3 endpoint selects S3, a SQLite path selects SQLite, otherwise memory.
func (c *Config) StorageType() int {
	switch {
	case c.DatabaseDSN != "":
		return models.StorageTypePostgresql
	case c.S3Endpoint != "":
		return models.StorageTypeS3
	case c.SQLitePath != "":
		return models.StorageTypeSQLite
	default:
		return models.StorageTypeMemory
	}
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

// validateOrigin accepts a bare web origin: scheme and host, no path.
func validateOrigin(fieldLevel validator.FieldLevel) bool {
	parsed, err := url.Parse(fieldLevel.Field().String())
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") &&
		parsed.Host != "" &&
		(parsed.Path == "" || parsed.Path == "/") &&
		parsed.RawQuery == "" &&
		parsed.Fragment == ""
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}
	if err := validate.RegisterValidation("corsorigins", validateOrigin); err != nil {
		return err
	}

	return validate.Struct(c)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

type flagValues struct {
	configPath    string
	runAddr       string
	grpcAddr      string
	logLevel      string
	authSecret    string
	databaseDSN   string
	sqlitePath    string
	trustedSubnet string
}

func parseFlags(args []string) (*flagValues, map[string]bool, error) {
	values := &flagValues{}
	flags := flag.NewFlagSet("comments", flag.ContinueOnError)
	flags.StringVar(&values.configPath, "c", "", "path to a JSON config file")
	flags.StringVar(&values.runAddr, "a", "", "address and port to run the HTTP server")
	flags.StringVar(&values.grpcAddr, "g", "", "address and port to run the gRPC server")
	flags.StringVar(&values.logLevel, "l", "", "logger level")
	flags.StringVar(&values.authSecret, "s", "", "token signing secret")
	flags.StringVar(&values.databaseDSN, "d", "", "PostgreSQL connection string")
	flags.StringVar(&values.sqlitePath, "f", "", "SQLite database file")
	flags.StringVar(&values.trustedSubnet, "t", "", "CIDR allowed to read /metrics")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return values, set, nil
}

func (c *Config) applyFlags(values *flagValues, set map[string]bool) {
	if set["a"] {
		c.RunAddr = values.runAddr
	}
	if set["g"] {
		c.GRPCAddr = values.grpcAddr
	}
	if set["l"] {
		c.LogLevel = values.logLevel
	}
	if set["s"] {
		c.AuthSecret = values.authSecret
	}
	if set["d"] {
		c.DatabaseDSN = values.databaseDSN
	}
	if set["f"] {
		c.SQLitePath = values.sqlitePath
	}
	if set["t"] {
		c.TrustedSubnet = values.trustedSubnet
	}
}

func (c *Config) applyJSONFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}
	return nil
}

// New assembles the configuration and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &flagValues{}
	set := map[string]bool{}
	if !options.disableFlagsParsing {
		var err error
		values, set, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig
	cfg.CORSOrigins = nil

	configPath := os.Getenv("CONFIG")
	if set["c"] {
		configPath = values.configPath
	}
	if configPath != "" {
		if err := cfg.applyJSONFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	cfg.applyFlags(values, set)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
