package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gabarita-api/internal/repository/memory"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims UserClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID, role string) UserClaims {
	return UserClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newAuthRouter(m *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})
	r.GET("/admin", m.RequireAuth(), m.AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doRequest(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(true, testSecret)
	r := newAuthRouter(m)

	expired := validClaims("u1", "")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	subjectOnly := validClaims("", "")
	subjectOnly.Subject = "u-sub"

	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"валидный токен", "Bearer " + signToken(t, validClaims("u1", ""), testSecret), http.StatusOK, "u1"},
		{"ID из subject", "Bearer " + signToken(t, subjectOnly, testSecret), http.StatusOK, "u-sub"},
		{"без заголовка", "", http.StatusUnauthorized, "token_missing"},
		{"неверный формат", "Token abc", http.StatusUnauthorized, "token_format"},
		{"чужая подпись", "Bearer " + signToken(t, validClaims("u1", ""), "other"), http.StatusUnauthorized, "token_invalid"},
		{"истекший токен", "Bearer " + signToken(t, expired, testSecret), http.StatusUnauthorized, "token_expired"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, "/me", tc.header)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestRequireAuth_Disabled(t *testing.T) {
	r := newAuthRouter(NewAuthMiddleware(false, ""))

	assert.Equal(t, http.StatusOK, doRequest(r, "/me", "").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(r, "/admin", "").Code)
}

func TestAdminOnly(t *testing.T) {
	r := newAuthRouter(NewAuthMiddleware(true, testSecret))

	user := doRequest(r, "/admin", "Bearer "+signToken(t, validClaims("u1", ""), testSecret))
	admin := doRequest(r, "/admin", "Bearer "+signToken(t, validClaims("root", RoleAdmin), testSecret))

	assert.Equal(t, http.StatusForbidden, user.Code)
	assert.Equal(t, http.StatusNoContent, admin.Code)
}

func TestAuthorizedFor(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, AuthorizedFor(c, "anyone"), "Без аутентификации проверка не выполняется")

	c.Set(ContextUserID, "u1")
	assert.True(t, AuthorizedFor(c, "u1"))
	assert.False(t, AuthorizedFor(c, "u2"))

	c.Set(ContextIsAdmin, true)
	assert.True(t, AuthorizedFor(c, "u2"), "Администратор может действовать за других")
}

func TestExtractStringParam(t *testing.T) {
	r := gin.New()
	r.GET("/users/:user_id", ExtractStringParam("user_id", "userID"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})

	ok := doRequest(r, "/users/u-42", "")
	tooLong := doRequest(r, "/users/"+strings.Repeat("x", MaxIDParamLength+1), "")
	blank := doRequest(r, "/users/%20", "")

	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "u-42", ok.Body.String())
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)
	assert.Equal(t, http.StatusBadRequest, blank.Code)
}

func TestRateLimiter_Limit(t *testing.T) {
	// Arrange
	limiter := NewRateLimiter(memory.NewCacheStore())
	r := gin.New()
	r.POST("/generate", limiter.Limit(RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "rl:test"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Act
	first := send("10.0.0.1")
	second := send("10.0.0.1")
	third := send("10.0.0.1")
	other := send("10.0.0.2")

	// Assert
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, other.Code, "Лимит считается отдельно для каждого клиента")
}

// failingCache отказывает на каждом вызове
type failingCache struct {
	*memory.CacheStore
}

func (failingCache) Increment(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func TestRateLimiter_FailOpen(t *testing.T) {
	limiter := NewRateLimiter(failingCache{memory.NewCacheStore()})
	r := gin.New()
	r.POST("/generate", limiter.Limit(RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:test"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "При ошибке кеша запросы пропускаются")
	}
}
