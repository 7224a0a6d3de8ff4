// Package config loads storefront settings: defaults first, then an optional YAML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogLevel    string
	LogJSON     bool
	TraceStdout bool

	CatalogDBPath         string
	CatalogMigrationsPath string

	PostgresHost         string
	PostgresPort         int
	PostgresUser         string
	PostgresPassword     string
	PostgresDB           string
	OrdersMigrationsPath string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
	DeliveryETA time.Duration
	PickupETA   time.Duration
}

func Default() *Config {
	return &Config{
		HTTPPort:           "8080",
		RequestTimeout:     10 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB

		LogLevel: "info",
		LogJSON:  true,

		CatalogDBPath:         "pizza.db",
		CatalogMigrationsPath: "internal/catalog/migrations",

		PostgresHost:         "localhost",
		PostgresPort:         5432,
		PostgresUser:         "postgres",
		PostgresPassword:     "postgres",
		PostgresDB:           "pizza",
		OrdersMigrationsPath: "internal/orders/migrations",

		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "pizza",
		RedisAddr:     "localhost:6379",

		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "pizza-orders",
		KafkaGroupID: "pizza-notifier",

		DeliveryFee: decimal.RequireFromString("3.99"),
		TaxRate:     decimal.RequireFromString("0.08"),
		DeliveryETA: 45 * time.Minute,
		PickupETA:   20 * time.Minute,
	}
}

// fileConfig mirrors the YAML layout. Money and durations are strings so that
// "3.99" and "45m" stay exact and readable.
type fileConfig struct {
	HTTP struct {
		Port            string `yaml:"port"`
		RequestTimeout  string `yaml:"request_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log struct {
		Level       string `yaml:"level"`
		JSON        *bool  `yaml:"json"`
		TraceStdout *bool  `yaml:"trace_stdout"`
	} `yaml:"log"`
	Catalog struct {
		DBPath         string `yaml:"db_path"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"catalog"`
	Postgres struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		User           string `yaml:"user"`
		Password       string `yaml:"password"`
		DB             string `yaml:"db"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Pricing struct {
		DeliveryFee string `yaml:"delivery_fee"`
		TaxRate     string `yaml:"tax_rate"`
		DeliveryETA string `yaml:"delivery_eta"`
		PickupETA   string `yaml:"pickup_eta"`
	} `yaml:"pricing"`
}

// Load builds the config. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFile(&fc); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.TaxRate.IsNegative() {
		errs = append(errs, errors.New("tax rate must not be negative"))
	}
	if c.DeliveryFee.IsNegative() {
		errs = append(errs, errors.New("delivery fee must not be negative"))
	}
	if c.DeliveryETA <= 0 || c.PickupETA <= 0 {
		errs = append(errs, errors.New("delivery and pickup ETA must be positive"))
	}
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("at least one kafka broker is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyFile(fc *fileConfig) error {
	setString(&c.HTTPPort, fc.HTTP.Port)
	if fc.HTTP.MaxBodyBytes > 0 {
		c.MaxRequestBodySize = fc.HTTP.MaxBodyBytes
	}
	setString(&c.LogLevel, fc.Log.Level)
	if fc.Log.JSON != nil {
		c.LogJSON = *fc.Log.JSON
	}
	if fc.Log.TraceStdout != nil {
		c.TraceStdout = *fc.Log.TraceStdout
	}
	setString(&c.CatalogDBPath, fc.Catalog.DBPath)
	setString(&c.CatalogMigrationsPath, fc.Catalog.MigrationsPath)
	setString(&c.PostgresHost, fc.Postgres.Host)
	if fc.Postgres.Port != 0 {
		c.PostgresPort = fc.Postgres.Port
	}
	setString(&c.PostgresUser, fc.Postgres.User)
	setString(&c.PostgresPassword, fc.Postgres.Password)
	setString(&c.PostgresDB, fc.Postgres.DB)
	setString(&c.OrdersMigrationsPath, fc.Postgres.MigrationsPath)
	setString(&c.MongoURI, fc.Mongo.URI)
	setString(&c.MongoDatabase, fc.Mongo.Database)
	setString(&c.RedisAddr, fc.Redis.Addr)
	if len(fc.Kafka.Brokers) > 0 {
		c.KafkaBrokers = fc.Kafka.Brokers
	}
	setString(&c.KafkaTopic, fc.Kafka.Topic)
	setString(&c.KafkaGroupID, fc.Kafka.GroupID)

	return errors.Join(
		setDuration(&c.RequestTimeout, "http.request_timeout", fc.HTTP.RequestTimeout),
		setDuration(&c.ShutdownTimeout, "http.shutdown_timeout", fc.HTTP.ShutdownTimeout),
		setDecimal(&c.DeliveryFee, "pricing.delivery_fee", fc.Pricing.DeliveryFee),
		setDecimal(&c.TaxRate, "pricing.tax_rate", fc.Pricing.TaxRate),
		setDuration(&c.DeliveryETA, "pricing.delivery_eta", fc.Pricing.DeliveryETA),
		setDuration(&c.PickupETA, "pricing.pickup_eta", fc.Pricing.PickupETA),
	)
}

func (c *Config) applyEnv() error {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CatalogDBPath = getEnv("CATALOG_DB_PATH", c.CatalogDBPath)
	c.CatalogMigrationsPath = getEnv("CATALOG_MIGRATIONS_PATH", c.CatalogMigrationsPath)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.OrdersMigrationsPath = getEnv("ORDERS_MIGRATIONS_PATH", c.OrdersMigrationsPath)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
	c.KafkaGroupID = getEnv("KAFKA_GROUP_ID", c.KafkaGroupID)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.KafkaBrokers = splitList(brokers)
	}

	var errs []error
	if v := getEnv("POSTGRES_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTGRES_PORT: %w", err))
		} else {
			c.PostgresPort = port
		}
	}
	if v := getEnv("LOG_JSON", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_JSON: %w", err))
		} else {
			c.LogJSON = b
		}
	}
	if v := getEnv("TRACE_STDOUT", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRACE_STDOUT: %w", err))
		} else {
			c.TraceStdout = b
		}
	}
	errs = append(errs,
		setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT", getEnv("REQUEST_TIMEOUT", "")),
		setDecimal(&c.DeliveryFee, "DELIVERY_FEE", getEnv("DELIVERY_FEE", "")),
		setDecimal(&c.TaxRate, "TAX_RATE", getEnv("TAX_RATE", "")),
		setDuration(&c.DeliveryETA, "DELIVERY_ETA", getEnv("DELIVERY_ETA", "")),
		setDuration(&c.PickupETA, "PICKUP_ETA", getEnv("PICKUP_ETA", "")),
	)
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func setDecimal(dst *decimal.Decimal, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
