package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cv-analyzer/internal/shared/auth"
)

const minPasswordLen = 8

var ErrInvalidCredentials = errors.New("invalid credentials")

// FieldError names one rejected input field.
type FieldError struct {
	Field string
	Issue string
}

// ValidationError carries every rejected field of one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Issue)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// SubscriptionEnsurer creates the owner's subscription when missing.
type SubscriptionEnsurer interface {
	EnsureSubscription(ctx context.Context, ownerID string) error
}

type Service struct {
	Repo       Repo
	Subs       SubscriptionEnsurer
	Signer     *auth.Signer
	bcryptCost int
}

func NewService(repo Repo, subs SubscriptionEnsurer, signer *auth.Signer) *Service {
	return &Service{Repo: repo, Subs: subs, Signer: signer, bcryptCost: bcrypt.DefaultCost}
}

// RegisterInput is the account creation payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account with a free subscription.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var issues []FieldError
	if username == "" {
		issues = append(issues, FieldError{Field: "username", Issue: "required"})
	} else if len(username) > 150 {
		issues = append(issues, FieldError{Field: "username", Issue: "too long"})
	}
	if email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			issues = append(issues, FieldError{Field: "email", Issue: "invalid email"})
		}
	}
	if len(in.Password) < minPasswordLen {
		issues = append(issues, FieldError{Field: "password", Issue: fmt.Sprintf("must be at least %d characters", minPasswordLen)})
	}
	if len(issues) > 0 {
		return User{}, &ValidationError{Fields: issues}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, &ValidationError{Fields: []FieldError{{Field: "username", Issue: "already taken"}}}
		}
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

func (s *Service) create(ctx context.Context, user User) error {
	if err := s.Repo.Create(ctx, user); err != nil {
		return err
	}
	if s.Subs != nil {
		if err := s.Subs.EnsureSubscription(ctx, user.ID); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
	}
	return nil
}

// Login resolves identifier as an email when it contains "@", otherwise as
// a username, and returns a token pair on success.
func (s *Service) Login(ctx context.Context, identifier, password string) (User, auth.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		user User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.Repo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.Repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, auth.TokenPair{}, ErrInvalidCredentials
		}
		return User{}, auth.TokenPair{}, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, auth.TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.IssueTokens(user)
	if err != nil {
		return User{}, auth.TokenPair{}, err
	}
	return user, pair, nil
}

// IssueTokens signs an access and refresh token for user.
func (s *Service) IssueTokens(user User) (auth.TokenPair, error) {
	return s.Signer.IssuePair(claimsFor(user))
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Signer.Verify(strings.TrimSpace(refreshToken), auth.TokenRefresh)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	user, err := s.Repo.GetByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	return s.Signer.IssueAccess(claimsFor(user))
}

// FindOrCreateByEmail returns the account for an externally verified email,
// creating one with a username derived from the address when absent.
func (s *Service) FindOrCreateByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, errors.New("email is required")
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		if s.Subs != nil {
			if err := s.Subs.EnsureSubscription(ctx, user.ID); err != nil {
				return User{}, fmt.Errorf("create subscription: %w", err)
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	base := strings.SplitN(email, "@", 2)[0]
	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		user = User{ID: uuid.NewString(), Username: candidate, Email: email}
		err = s.create(ctx, user)
		if err == nil {
			return s.Repo.GetByID(ctx, user.ID)
		}
		if !errors.Is(err, ErrUsernameTaken) {
			return User{}, err
		}
		candidate = base + "-" + uuid.NewString()[:6]
	}
	return User{}, err
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// Count returns the number of accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.Repo.Count(ctx)
}

func claimsFor(user User) auth.Claims {
	return auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Email:    user.Email,
		Admin:    user.IsAdmin,
	}
}
