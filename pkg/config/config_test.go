package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, CacheDriverLRU, cfg.Cache.Driver)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, 3, cfg.Booking.MaxTxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Booking.TxRetryInterval)
	assert.True(t, cfg.Audit.Enabled)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", "MEMORY")
	v.Set("CACHE_DRIVER", "redis")
	v.Set("CACHE_TTL", "30s")
	v.Set("CACHE_LRU_SIZE", 0)
	v.Set("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	v.Set("CLINIC_TIMEZONE", "Asia/Jakarta")
	v.Set("AUDIT_RETRY_DELAY", "not-a-duration")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.LRUSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Asia/Jakarta", cfg.Booking.Timezone)
	assert.Equal(t, time.Second, cfg.Audit.RetryDelay)
}

func TestFromViperRejectsInvalidSettings(t *testing.T) {
	tests := map[string]struct{ key, value string }{
		"storage driver": {"STORAGE_DRIVER", "mongo"},
		"timezone":       {"CLINIC_TIMEZONE", "Mars/Olympus"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			v.Set(tc.key, tc.value)

			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}
