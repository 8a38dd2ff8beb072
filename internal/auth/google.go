// Package auth implements sign-in through Google OAuth.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "cv-analyzer/internal/shared/auth"
	"cv-analyzer/internal/shared/server/respond"
	"cv-analyzer/internal/shared/telemetry"
	"cv-analyzer/internal/users"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateTTL           = 5 * time.Minute
	maxPendingStates   = 4096
)

// Accounts resolves a verified Google email to a local account and signs tokens for it.
type Accounts interface {
	FindOrCreateByEmail(ctx context.Context, email string) (users.User, error)
	IssueTokens(user users.User) (sharedauth.TokenPair, error)
}

// GoogleConfig holds the OAuth client registration and the UI landing page.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
}

func (c GoogleConfig) configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

type GoogleService struct {
	cfg         GoogleConfig
	oauthConfig *oauth2.Config
	accounts    Accounts
	userInfoURL string
	states      *stateStore
}

func NewGoogleService(cfg GoogleConfig, accounts Accounts) *GoogleService {
	return &GoogleService{
		cfg: cfg,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		accounts:    accounts,
		userInfoURL: defaultUserInfoURL,
		states:      newStateStore(maxPendingStates, stateTTL),
	}
}

// RegisterRoutes mounts /auth/google/start and /auth/google/callback on rg.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.cfg.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}
	state := uuid.NewString()
	s.states.put(state)
	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

func (s *GoogleService) callback(c *gin.Context) {
	if msg := c.Query("error"); msg != "" {
		respond.Error(c, http.StatusBadRequest, "auth_denied", "Google sign-in was cancelled", gin.H{"reason": msg})
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Missing state or code", nil)
		return
	}
	if !s.states.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Sign-in link expired, please try again", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Could not complete Google sign-in", nil)
		return
	}
	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.google.profile_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "Could not read Google profile", nil)
		return
	}

	user, err := s.accounts.FindOrCreateByEmail(ctx, profile.Email)
	if err != nil {
		respond.Internal(c, "Could not resolve account", err)
		return
	}
	pair, err := s.accounts.IssueTokens(user)
	if err != nil {
		respond.Internal(c, "Could not issue tokens", err)
		return
	}
	target, err := withTokens(s.cfg.UIRedirect, pair)
	if err != nil {
		respond.Internal(c, "UI redirect is not configured", err)
		return
	}
	telemetry.Info("auth.google.login", map[string]any{"user_id": user.ID})
	c.Redirect(http.StatusFound, target)
}

type googleProfile struct {
	ID            string `json:"id"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
}

func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	resp, err := s.oauthConfig.Client(ctx, token).Get(s.userInfoURL)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if p.Sub == "" {
		p.Sub = p.ID
	}
	switch {
	case p.Sub == "" || p.Email == "":
		return googleProfile{}, errors.New("profile missing id or email")
	case p.VerifiedEmail != nil && !*p.VerifiedEmail:
		return googleProfile{}, errors.New("email not verified")
	}
	return p, nil
}

// stateStore keeps pending OAuth states until they are consumed or expire.
type stateStore struct {
	mu    sync.Mutex
	items *expirable.LRU[string, struct{}]
}

func newStateStore(size int, ttl time.Duration) *stateStore {
	return &stateStore{items: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (s *stateStore) put(state string) {
	s.mu.Lock()
	s.items.Add(state, struct{}{})
	s.mu.Unlock()
}

// consume reports whether state was pending and removes it.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items.Get(state); !ok {
		return false
	}
	s.items.Remove(state)
	return true
}

func withTokens(rawURL string, pair sharedauth.TokenPair) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("access", pair.Access)
	q.Set("refresh", pair.Refresh)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
