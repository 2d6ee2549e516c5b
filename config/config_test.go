package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "video/mp4", cfg.Upload.DefaultContentType)
	assert.Equal(t, time.Hour, cfg.Upload.PartURLTTL)
	assert.Equal(t, 15*time.Second, cfg.Upload.StoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.Upload.PublishTimeout)
	assert.Equal(t, EventsDriverNone, cfg.Events.Driver)
	assert.Equal(t, RegistryDriverPostgres, cfg.RegistryDriver)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMinIO)
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("UPLOAD_PART_URL_TTL", "90s")
	t.Setenv("UPLOAD_READ_URL_TTL", "120")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, StoreDriverMinIO, cfg.Store.Driver)
	assert.True(t, cfg.Store.MinIOUseSSL)
	assert.Equal(t, 90*time.Second, cfg.Upload.PartURLTTL)
	assert.Equal(t, 120*time.Second, cfg.Upload.ReadURLTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 0, cfg.RedisDB)
}
