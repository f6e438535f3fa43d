package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms_chat_console/pkg/util/jwt"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecureHeaders(false), JWTAuth())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOperatorKey))
	})
	return r
}

func do(r http.Handler, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthDisabledWithoutSecret(t *testing.T) {
	jwt.Init("", 5)
	w := do(newEngine(), "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestJWTAuth(t *testing.T) {
	jwt.Init("s3cret", 5)
	t.Cleanup(func() { jwt.Init("", 5) })
	token, err := jwt.GenerateAccessToken("alice")
	require.NoError(t, err)
	r := newEngine()

	tests := []struct {
		name   string
		target string
		auth   string
		want   int
	}{
		{"missing", "/ping", "", http.StatusUnauthorized},
		{"wrong scheme", "/ping", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "/ping", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "/ping", "Bearer " + token, http.StatusOK},
		{"query", "/ping?token=" + token, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.target, tt.auth)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "alice", w.Body.String())
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin", "", nil, true},
		{"same origin", "http://127.0.0.1:8090", nil, true},
		{"foreign by default", "https://evil.example", nil, false},
		{"listed", "http://localhost:5173", []string{"http://localhost:5173/"}, true},
		{"not listed", "https://evil.example", []string{"http://localhost:5173"}, false},
		{"wildcard", "https://evil.example", []string{"*"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8090/api/chats", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, OriginAllowed(req, tt.allowed))
		})
	}
}

func TestOriginGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OriginGuard(nil))
	r.POST("/api/messages", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "1007")
}
