package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/internal/service"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

type stubTokens struct {
	claims map[string]*models.JWTClaims
}

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := stubTokens{claims: map[string]*models.JWTClaims{
		"patient": {UserID: "P1", Role: models.RolePatient},
		"doctor":  {UserID: "D1", Role: models.RoleDoctor},
		"admin":   {UserID: "A1", Role: models.RoleAdmin},
	}}
	r := gin.New()
	api := r.Group("/", JWT(tokens))
	api.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		actor, ok := models.ActorFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, actor.ID)
	})
	api.GET("/patients/:id", RBAC([]models.UserRole{models.RoleAdmin}, Self(models.RolePatient)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRBAC(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing token", "/admin", "", http.StatusUnauthorized},
		{"unknown token", "/admin", "forged", http.StatusUnauthorized},
		{"wrong role", "/admin", "patient", http.StatusForbidden},
		{"admin", "/admin", "admin", http.StatusOK},
		{"self patient", "/patients/P1", "patient", http.StatusOK},
		{"other patient", "/patients/P2", "patient", http.StatusForbidden},
		{"doctor with patient id", "/patients/D1", "doctor", http.StatusForbidden},
		{"admin on patient", "/patients/P2", "admin", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	w := serve(r, "/admin", "admin")
	assert.Equal(t, "A1", w.Body.String())
}

func TestForbiddenEnvelope(t *testing.T) {
	w := serve(newRouter(), "/admin", "doctor")
	require.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	WithResponseMeta()(c)
	SetCacheHit(c, true)
	meta := ExtractMeta(c)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingTimeMs)
}

func TestMetricsSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/slots/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/slots/s-1", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	routes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					routes[label.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"/slots/:id": 1, "unmatched": 1}, routes)
}
