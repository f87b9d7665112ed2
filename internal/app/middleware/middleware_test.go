package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jwtService services.InterfaceJWTService) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthenticateUser(jwtService), func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.String(http.StatusOK, actor.UserID)
	})
	r.GET("/responders-only", AuthenticateUser(jwtService), RequireRole(models.RoleResponder), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticateUser(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{JWTSecretKey: "k"})
	r := newAuthRouter(jwtService)

	studentToken, err := jwtService.GenerateToken(models.Actor{UserID: "stu-1", Role: models.RoleStudent}, time.Hour)
	require.NoError(t, err)
	responderToken, err := jwtService.GenerateToken(models.Actor{UserID: "resp-1", Role: models.RoleResponder}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"student", "/me", "Bearer " + studentToken, http.StatusOK},
		{"student on responder route", "/responders-only", "Bearer " + studentToken, http.StatusForbidden},
		{"responder on responder route", "/responders-only", "Bearer " + responderToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(0.0001, 2)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestBucketSet_Sweep(t *testing.T) {
	set := newBucketSet(1, 1)
	stale := set.get("10.0.0.1")
	stale.lastRefill = time.Now().Add(-2 * time.Hour)
	set.get("10.0.0.2")

	set.mu.Lock()
	set.sweepLocked(time.Now(), time.Hour)
	set.mu.Unlock()

	assert.NotContains(t, set.buckets, "10.0.0.1")
	assert.Contains(t, set.buckets, "10.0.0.2")
}

func TestRateLimiter_Rejects(t *testing.T) {
	r := gin.New()
	r.Use(IPRateLimiter(0.0001, 1))
	r.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestUserRateLimiter_PerUser(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(actorKey, models.Actor{UserID: c.GetHeader("X-User"), Role: models.RoleStudent})
	}, UserRateLimiter(0.0001, 1))
	r.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}
