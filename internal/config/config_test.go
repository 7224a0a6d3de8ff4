package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "3.99", cfg.DeliveryFee.StringFixed(2))
	assert.Equal(t, "0.08", cfg.TaxRate.StringFixed(2))
	assert.Equal(t, 45*time.Minute, cfg.DeliveryETA)
	assert.Equal(t, 20*time.Minute, cfg.PickupETA)
	assert.Equal(t, "pizza-orders", cfg.KafkaTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
http:
  port: "9090"
  request_timeout: 3s
log:
  level: debug
  json: false
postgres:
  host: db
  port: 6543
kafka:
  brokers: ["k1:9092", "k2:9092"]
pricing:
  delivery_fee: "4.50"
  tax_rate: "0.1"
  delivery_eta: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, "db", cfg.PostgresHost)
	assert.Equal(t, 6543, cfg.PostgresPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "4.50", cfg.DeliveryFee.StringFixed(2))
	assert.Equal(t, "0.10", cfg.TaxRate.StringFixed(2))
	assert.Equal(t, time.Hour, cfg.DeliveryETA)
	assert.Equal(t, 20*time.Minute, cfg.PickupETA, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "http:\n  port: \"9090\"\npricing:\n  tax_rate: \"0.1\"\n")
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2")
	t.Setenv("PICKUP_ETA", "15m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "0.20", cfg.TaxRate.StringFixed(2))
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.PickupETA)
}

func TestLoad_BadValues(t *testing.T) {
	path := writeFile(t, "pricing:\n  delivery_fee: cheap\n  delivery_eta: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "pricing.delivery_fee")
	assert.ErrorContains(t, err, "pricing.delivery_eta")
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "five")

	_, err := Load("")
	assert.ErrorContains(t, err, "POSTGRES_PORT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TaxRate = cfg.TaxRate.Neg()
	cfg.PickupETA = 0

	err := cfg.Validate()
	assert.ErrorContains(t, err, "tax rate")
	assert.ErrorContains(t, err, "ETA")
}
