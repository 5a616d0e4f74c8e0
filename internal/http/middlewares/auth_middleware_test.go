package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rgoncalves/marketdash/internal/auth"
	"github.com/rgoncalves/marketdash/internal/http/middlewares"
)

func newProtectedRouter(t *testing.T, m *auth.Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mw := middlewares.NewAuthMiddleware(m)

	r := gin.New()
	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		id, ok := middlewares.UserIDFromContext(c)

		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "missing identity"})
			return
		}

		role, _ := middlewares.RoleFromContext(c)

		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})

	return r
}

func doProtected(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := newProtectedRouter(t, auth.NewManager("test-secret", time.Hour))

	w := doProtected(r, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	r := newProtectedRouter(t, auth.NewManager("test-secret", time.Hour))

	for _, header := range []string{"Bearer ", "Token abc", "bearer abc"} {
		w := doProtected(r, header)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: got status %d, want 401", header, w.Code)
		}
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	expired := auth.NewManager("test-secret", -time.Hour)

	token, err := expired.GenerateToken(7, "sam", "user")

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	r := newProtectedRouter(t, auth.NewManager("test-secret", time.Hour))

	w := doProtected(r, "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
	}
}

func TestRequireAuth_AttachesClaims(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	token, err := m.GenerateToken(7, "sam", "admin")

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	r := newProtectedRouter(t, m)

	w := doProtected(r, "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	want := `{"id":7,"role":"admin"}`

	if w.Body.String() != want {
		t.Fatalf("got body %s, want %s", w.Body.String(), want)
	}
}
