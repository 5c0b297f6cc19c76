package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type (
	APP struct {
		Name            string
		Host            string
		Port            string
		Env             string
		RequestTimeout  time.Duration
		ShutdownTimeout time.Duration
		RateLimitRPS    float64
		RateLimitBurst  int
		CORSOrigins     []string
	}
	Log struct {
		Level      string
		JSON       bool
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
	DB struct {
		Driver     string
		User       string
		Password   string
		Name       string
		Host       string
		Port       string
		SSLMode    string
		MaxConns   int32
		AutoSchema bool
	}
	Security struct {
		BcryptCost int
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}

	Config struct {
		App      APP
		Log      Log
		DB       DB
		Security Security
		MQ       MQ
	}
)

var defaults = map[string]any{
	"SERVICE_NAME":             "userregistryapi",
	"SERVICE_HOST":             "0.0.0.0",
	"SERVICE_PORT":             "8080",
	"SERVICE_ENV":              "debug",
	"SERVICE_REQUEST_TIMEOUT":  "10s",
	"SERVICE_SHUTDOWN_TIMEOUT": "5s",
	"SERVICE_RATE_LIMIT_RPS":   0,
	"SERVICE_RATE_LIMIT_BURST": 0,
	"SERVICE_CORS_ORIGINS":     "",
	"LOG_LEVEL":                "info",
	"LOG_JSON":                 true,
	"LOG_FILE":                 "",
	"LOG_MAX_SIZE_MB":          100,
	"LOG_MAX_BACKUPS":          5,
	"LOG_MAX_AGE_DAYS":         14,
	"DB_DRIVER":                DriverPostgres,
	"POSTGRES_PORT":            "5432",
	"POSTGRES_SSLMODE":         "disable",
	"POSTGRES_MAX_CONNS":       10,
	"DB_AUTO_SCHEMA":           false,
	"BCRYPT_COST":              10,
	"RABBITMQ_VHOST":           "/",
	"RABBITMQ_AMQP_PORT":       "5672",
	"RABBITMQ_EXCHANGE":        "users",
	"RABBITMQ_EXCHANGE_TYPE":   "direct",
	"RABBITMQ_QUEUE_NAME":      "users.events",
}

// Load reads an optional .env file and then resolves every key from the
// environment, falling back to defaults.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	app := APP{
		Name:            v.GetString("SERVICE_NAME"),
		Host:            v.GetString("SERVICE_HOST"),
		Port:            v.GetString("SERVICE_PORT"),
		Env:             v.GetString("SERVICE_ENV"),
		RequestTimeout:  v.GetDuration("SERVICE_REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SERVICE_SHUTDOWN_TIMEOUT"),
		RateLimitRPS:    v.GetFloat64("SERVICE_RATE_LIMIT_RPS"),
		RateLimitBurst:  v.GetInt("SERVICE_RATE_LIMIT_BURST"),
		CORSOrigins:     splitList(v.GetString("SERVICE_CORS_ORIGINS")),
	}
	log := Log{
		Level:      v.GetString("LOG_LEVEL"),
		JSON:       v.GetBool("LOG_JSON"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}
	db := DB{
		Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
		User:       v.GetString("POSTGRES_USER"),
		Password:   v.GetString("POSTGRES_PASSWORD"),
		Name:       v.GetString("POSTGRES_DB"),
		Host:       v.GetString("POSTGRES_HOST"),
		Port:       v.GetString("POSTGRES_PORT"),
		SSLMode:    v.GetString("POSTGRES_SSLMODE"),
		MaxConns:   v.GetInt32("POSTGRES_MAX_CONNS"),
		AutoSchema: v.GetBool("DB_AUTO_SCHEMA"),
	}
	security := Security{
		BcryptCost: v.GetInt("BCRYPT_COST"),
	}
	mq := MQ{
		User:         v.GetString("RABBITMQ_USER"),
		Password:     v.GetString("RABBITMQ_PASSWORD"),
		Vhost:        v.GetString("RABBITMQ_VHOST"),
		Host:         v.GetString("RABBITMQ_HOST"),
		AmqpPort:     v.GetString("RABBITMQ_AMQP_PORT"),
		Exchange:     v.GetString("RABBITMQ_EXCHANGE"),
		ExchangeType: v.GetString("RABBITMQ_EXCHANGE_TYPE"),
		QueueName:    v.GetString("RABBITMQ_QUEUE_NAME"),
	}

	switch db.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", db.Driver)
	}
	if app.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("SERVICE_REQUEST_TIMEOUT must be positive")
	}

	return Config{
		App:      app,
		Log:      log,
		DB:       db,
		Security: security,
		MQ:       mq,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     c.DB.Host + ":" + c.DB.Port,
		Path:     "/" + c.DB.Name,
		RawQuery: url.Values{"sslmode": []string{c.DB.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// MQEnabled reports whether lifecycle events should be published.
func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}
