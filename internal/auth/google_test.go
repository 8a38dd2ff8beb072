package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "cv-analyzer/internal/shared/auth"
	"cv-analyzer/internal/users"
)

type fakeAccounts struct {
	email string
}

func (f *fakeAccounts) FindOrCreateByEmail(_ context.Context, email string) (users.User, error) {
	f.email = email
	return users.User{ID: "user-1", Username: "kim", Email: email}, nil
}

func (f *fakeAccounts) IssueTokens(user users.User) (sharedauth.TokenPair, error) {
	return sharedauth.TokenPair{Access: "access-" + user.ID, Refresh: "refresh-" + user.ID}, nil
}

func testGoogleConfig(ui string) GoogleConfig {
	return GoogleConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://api/cb", UIRedirect: ui}
}

func TestGoogleStartNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(GoogleConfig{UIRedirect: "http://ui"}, &fakeAccounts{})
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(testGoogleConfig("http://ui"), &fakeAccounts{})
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=nope&code=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGoogleCallbackRedirectsWithTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			_, _ = w.Write([]byte(`{"id":"123","email":"Kim@Example.com","name":"Kim"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	accounts := &fakeAccounts{}
	svc := NewGoogleService(testGoogleConfig("http://ui/done"), accounts)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: upstream.URL + "/auth", TokenURL: upstream.URL + "/token"}
	svc.userInfoURL = upstream.URL + "/userinfo"
	svc.states.put("state-1")

	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=state-1&code=abc", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", resp.Code, resp.Body.String())
	}

	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Query().Get("access") != "access-user-1" || loc.Query().Get("refresh") != "refresh-user-1" {
		t.Fatalf("unexpected redirect %s", loc.String())
	}
	if accounts.email != "Kim@Example.com" {
		t.Fatalf("expected email forwarded, got %q", accounts.email)
	}
	if svc.states.consume("state-1") {
		t.Fatalf("state must be single use")
	}
}

func TestGoogleStartRedirectsWithState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(testGoogleConfig("http://ui"), &fakeAccounts{})
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" || !svc.states.consume(state) {
		t.Fatalf("expected pending state in %s", loc)
	}
}

func TestStateStoreExpires(t *testing.T) {
	store := newStateStore(8, 10*time.Millisecond)
	store.put("s")
	time.Sleep(30 * time.Millisecond)
	if store.consume("s") {
		t.Fatalf("expired state must not be accepted")
	}
}

func TestGoogleCallbackRejectsUnverifiedEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/token" {
			_, _ = w.Write([]byte(`{"access_token":"t","token_type":"Bearer","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","email":"a@b.c","verified_email":false}`))
	}))
	defer upstream.Close()

	accounts := &fakeAccounts{}
	svc := NewGoogleService(testGoogleConfig("http://ui"), accounts)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: upstream.URL + "/token"}
	svc.userInfoURL = upstream.URL + "/userinfo"
	svc.states.put("s")

	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=s&code=c", nil))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if accounts.email != "" {
		t.Fatalf("account must not be resolved for unverified email")
	}
}
