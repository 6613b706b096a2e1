package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))

	// Test-only login route that stamps the session the way the app's auth
	// flow does.
	r.GET("/login", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set("user_id", uint(1))
		session.Set("user_email", "dev@societyspeaks.local")
		session.Set("user_role", c.Query("role"))
		_ = session.Save()
		c.Status(http.StatusOK)
	})

	protected := r.Group("/", RequireAuth())
	protected.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })
	protected.POST("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func login(t *testing.T, r *gin.Engine, role string) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/login?role="+role, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func do(r *gin.Engine, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	r := newAuthRouter()
	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAllowsSession(t *testing.T) {
	r := newAuthRouter()
	cookies := login(t, r, "user")
	w := do(r, http.MethodGet, "/me", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	r := newAuthRouter()
	cookies := login(t, r, "user")
	w := do(r, http.MethodPost, "/admin", cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	r := newAuthRouter()
	cookies := login(t, r, "admin")
	w := do(r, http.MethodPost, "/admin", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}
