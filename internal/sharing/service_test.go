package sharing

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"cv-analyzer/internal/resumes"
	"cv-analyzer/internal/users"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepo
	resumes *resumes.Service
	owner   users.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	userRepo := users.NewMemoryRepo()
	owner := users.User{ID: "owner-1", Username: "ada"}
	if err := userRepo.Create(ctx, owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resumeRepo := resumes.NewMemoryRepo()
	repo := NewMemoryRepo()
	svc := NewService(repo, resumeRepo, userRepo)
	return &fixture{
		svc:     svc,
		repo:    repo,
		resumes: resumes.NewService(resumeRepo, svc),
		owner:   owner,
	}
}

func TestIssueAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.resumes.Create(ctx, f.owner.ID, resumes.CreateInput{
		Title:          "Backend CV",
		Content:        map[string]any{"summary": "Go"},
		LatestAnalysis: map[string]any{"score": 81.0},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, err := f.resumes.Share(ctx, f.owner.ID, res.ID)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenBytes {
		t.Fatalf("token %q is not %d urlsafe bytes: %v", token, tokenBytes, err)
	}

	snap, err := f.svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Title != "Backend CV" || snap.Owner != "ada" || snap.LatestAnalysis["score"] != 81.0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := f.svc.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestResolveUnknownAndExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	res, err := f.resumes.Create(ctx, f.owner.ID, resumes.CreateInput{Title: "CV"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	link := Link{ResumeID: res.ID, Token: "old", ExpiresAt: &past}
	if err := f.repo.Create(ctx, &link); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired link to be not found, got %v", err)
	}

	dangling := Link{ResumeID: 999, Token: "dangling"}
	if err := f.repo.Create(ctx, &dangling); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, "dangling"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing resume to be not found, got %v", err)
	}
}

func TestLinkExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	if (Link{}).Expired(now) {
		t.Fatalf("link without expiry must not expire")
	}
	if (Link{ExpiresAt: &later}).Expired(now) {
		t.Fatalf("future expiry must not be expired")
	}
	if !(Link{ExpiresAt: &now}).Expired(now) {
		t.Fatalf("expiry at now must be expired")
	}
}
