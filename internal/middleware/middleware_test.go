package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func accessClaims(perms []string) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":   "u-1",
		"name":  "Tester",
		"roles": []string{"purchaser"},
		"perms": perms,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	r.GET("/x", handlers...)
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(JWTAuth(testSecret))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	w := get(r, sign(t, accessClaims(nil)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-1")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	expired := accessClaims(nil)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	assert.Equal(t, http.StatusUnauthorized, get(r, sign(t, expired)).Code)

	// 刷新令牌不能访问接口
	refresh := jwt.MapClaims{"sub": "u-1", "uid": "u-1", "type": "refresh", "exp": time.Now().Add(time.Hour).Unix()}
	assert.Equal(t, http.StatusUnauthorized, get(r, sign(t, refresh)).Code)
}

func TestRequirePermission(t *testing.T) {
	r := newRouter(JWTAuth(testSecret), RequirePermission("delivery:receive", "purchase_order:manage"))

	assert.Equal(t, http.StatusForbidden, get(r, sign(t, accessClaims([]string{"catalog:manage"}))).Code)
	assert.Equal(t, http.StatusOK, get(r, sign(t, accessClaims([]string{"purchase_order:manage"}))).Code)
	assert.Equal(t, http.StatusOK, get(r, sign(t, accessClaims([]string{"*"}))).Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(JWTAuth(testSecret), RequireRole("approver"))
	assert.Equal(t, http.StatusForbidden, get(r, sign(t, accessClaims(nil))).Code)

	admin := accessClaims(nil)
	admin["roles"] = []string{AdminRole}
	assert.Equal(t, http.StatusOK, get(r, sign(t, admin)).Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
