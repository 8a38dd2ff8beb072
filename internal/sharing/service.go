package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-analyzer/internal/resumes"
	"cv-analyzer/internal/users"
)

// ResumeReader loads a resume without an owner check.
type ResumeReader interface {
	Get(ctx context.Context, id int64) (resumes.Resume, error)
}

// OwnerReader resolves the owner's public username.
type OwnerReader interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

type Service struct {
	Repo    Repo
	Resumes ResumeReader
	Owners  OwnerReader
	now     func() time.Time
}

func NewService(repo Repo, resumeReader ResumeReader, owners OwnerReader) *Service {
	return &Service{Repo: repo, Resumes: resumeReader, Owners: owners, now: time.Now}
}

// Issue creates a new non-expiring link for resumeID and returns its token.
func (s *Service) Issue(ctx context.Context, resumeID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	link := Link{ResumeID: resumeID, Token: token}
	if err := s.Repo.Create(ctx, &link); err != nil {
		return "", err
	}
	return link.Token, nil
}

// Resolve returns the public snapshot behind token. Unknown and expired
// tokens both yield ErrNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (Snapshot, error) {
	link, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}
	if link.Expired(s.now().UTC()) {
		return Snapshot{}, ErrNotFound
	}
	res, err := s.Resumes.Get(ctx, link.ResumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	owner, err := s.Owners.GetByID(ctx, res.OwnerID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return Snapshot{}, err
	}
	return Snapshot{
		Title:          res.Title,
		Content:        res.Content,
		LatestAnalysis: res.LatestAnalysis,
		Owner:          owner.Username,
	}, nil
}
