package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/auth"
)

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner("test-secret", time.Minute, time.Hour, true)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)))
	router.OPTIONS("/api/analyze", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)), RequireAuth())
	router.GET("/api/auth/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthSetsIdentityFromAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := newTestSigner(t)
	pair, err := signer.IssuePair(auth.Claims{Sub: "user-1", Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	router := gin.New()
	router.Use(Auth(signer), RequireAuth())
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c)+"|"+UserNameFromContext(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "user-1|alice" {
		t.Fatalf("unexpected response %d %q", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token should be rejected, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := newTestSigner(t)
	router := gin.New()
	router.Use(Auth(signer), RequireAdmin())
	router.GET("/api/admin/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	userToken, _ := signer.IssueAccess(auth.Claims{Sub: "u1"})
	adminToken, _ := signer.IssueAccess(auth.Claims{Sub: "u2", Admin: true})

	tests := []struct {
		token string
		want  int
	}{
		{userToken, http.StatusForbidden},
		{adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
		req.Header.Set("Authorization", "Bearer "+tt.token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("expected %d, got %d", tt.want, resp.Code)
		}
	}
}
