package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/config"
)

const seedJSON = `{
  "departments": [{"id": "dep-1", "name": "General", "active": true}],
  "doctors": [{"id": "D1", "name": "Dr One", "department_id": "dep-1", "active": true}],
  "conditions": [{"id": "flu", "name": "Influenza"}],
  "patients": [{"id": "P1", "name": "Pat"}],
  "capabilities": {"D1": ["flu"]}
}`

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedJSON), 0o600))
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		Storage:   config.StorageConfig{Driver: config.StorageDriverMemory, SeedFile: seed},
		Cache:     config.CacheConfig{Driver: config.CacheDriverLRU, TTL: time.Minute, LRUSize: 64},
		JWT:       config.JWTConfig{Secret: "test-secret", Issuer: "clinic", Expiration: time.Hour},
		Booking:   config.BookingConfig{Timezone: "UTC"},
		Audit:     config.AuditConfig{Enabled: true, Workers: 1, BufferSize: 8, MaxRetries: 1, RetryDelay: time.Millisecond},
	}
}

func TestNewAppMemoryBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, memoryConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	router := a.router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := a.tokens.IssueToken("P1", models.RolePatient, "Pat")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conditions/flu/doctors", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "D1")
}

func TestNewAppRejectsUnknownTimezone(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Booking.Timezone = "Mars/Olympus"

	_, err := newApp(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := loadCatalog(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
