// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/imi-licensing/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func identityRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		principal, _ := utils.GetPrincipalFromContext(c)
		role, _ := utils.GetRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"principal": principal, "role": role})
	})
	r.GET("/", handlers...)
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, principal, role string) http.Header {
	token, err := utils.GenerateJWT(principal, role, 1)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestAuthRequired(t *testing.T) {
	r := identityRouter(AuthRequired())

	rec := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(r, http.Header{"Authorization": {"Token abc"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(r, http.Header{"Authorization": {"Bearer not-a-jwt"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(r, bearer(t, "alice", utils.RoleMember))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"principal":"alice","role":"member"}`, rec.Body.String())
}

func TestAuthRequiredRejectsExpiredToken(t *testing.T) {
	claims := utils.JWTClaims{
		Principal: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("middleware-test-secret"))
	require.NoError(t, err)

	rec := get(identityRouter(I18nMiddleware(), AuthRequired()), http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth.token_expired")
}

func TestAdminRequired(t *testing.T) {
	r := identityRouter(AuthRequired(), AdminRequired())

	rec := get(r, bearer(t, "alice", utils.RoleMember))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
	assert.Equal(t, http.StatusOK, get(r, bearer(t, "root", utils.RoleAdmin)).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := identityRouter(OptionalAuth())

	rec := get(r, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"principal":"","role":""}`, rec.Body.String())

	rec = get(r, http.Header{"Authorization": {"Bearer broken"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, bearer(t, "bob", utils.RoleMember))
	assert.JSONEq(t, `{"principal":"bob","role":"member"}`, rec.Body.String())
}

func TestRateLimiterKeysByPrincipal(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	defer rl.Stop()
	r := identityRouter(OptionalAuth(), rl.Middleware())

	alice := bearer(t, "alice", utils.RoleMember)
	assert.Equal(t, http.StatusOK, get(r, alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, alice).Code)

	// a different principal from the same address has its own bucket
	assert.Equal(t, http.StatusOK, get(r, bearer(t, "bob", utils.RoleMember)).Code)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	defer rl.Stop()

	rl.getVisitor("ip:1.2.3.4")
	rl.evictIdle(time.Now().Add(time.Hour))

	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	assert.Empty(t, rl.visitors)
}

func TestRequestID(t *testing.T) {
	r := identityRouter(RequestID())

	rec := get(r, nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	id := "2b1f8a52-3f1e-4f52-9d2e-6b7b2c1f0a11"
	rec = get(r, http.Header{RequestIDHeader: {id}})
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	rec = get(r, http.Header{RequestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "en", normalizeLang(""))
	assert.Equal(t, "zh_TW", normalizeLang("zh-TW,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", normalizeLang("fr-FR"))
}
