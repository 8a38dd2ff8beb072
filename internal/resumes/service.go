package resumes

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"cv-analyzer/internal/shared/telemetry"
	"cv-analyzer/resume/model"
	"cv-analyzer/resume/render"
)

// ShareIssuer mints public share tokens for a resume.
type ShareIssuer interface {
	Issue(ctx context.Context, resumeID int64) (string, error)
}

// Service implements resume CRUD, sharing and export for one owner at a time.
type Service struct {
	Repo   Repo
	Shares ShareIssuer
	// Render defaults to render.PDF.
	Render func(model.Document) ([]byte, error)
}

func NewService(repo Repo, shares ShareIssuer) *Service {
	return &Service{Repo: repo, Shares: shares, Render: render.PDF}
}

type CreateInput struct {
	Title          string
	Content        map[string]any
	LatestAnalysis map[string]any
}

// PatchInput carries optional fields; nil leaves the stored value unchanged.
type PatchInput struct {
	Title          *string
	Content        map[string]any
	LatestAnalysis map[string]any
}

// Export is a rendered resume ready for download.
type Export struct {
	FileName string
	Data     []byte
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Resume, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

// Get returns ErrNotFound for unknown ids and for resumes owned by someone else.
func (s *Service) Get(ctx context.Context, ownerID string, id int64) (Resume, error) {
	res, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	if res.OwnerID != ownerID {
		return Resume{}, ErrNotFound
	}
	return res, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Resume, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return Resume{}, err
	}
	res := Resume{
		OwnerID:        ownerID,
		Title:          title,
		Content:        orEmpty(in.Content),
		LatestAnalysis: orEmpty(in.LatestAnalysis),
	}
	if err := s.Repo.Create(ctx, &res); err != nil {
		return Resume{}, err
	}
	telemetry.Info("resume.created", map[string]any{"resume_id": res.ID, "user_id": ownerID})
	return res, nil
}

func (s *Service) Patch(ctx context.Context, ownerID string, id int64, in PatchInput) (Resume, error) {
	res, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Resume{}, err
	}
	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return Resume{}, err
		}
		res.Title = title
	}
	if in.Content != nil {
		res.Content = in.Content
	}
	if in.LatestAnalysis != nil {
		res.LatestAnalysis = in.LatestAnalysis
	}
	if err := s.Repo.Update(ctx, &res); err != nil {
		return Resume{}, err
	}
	telemetry.Info("resume.updated", map[string]any{"resume_id": res.ID, "user_id": ownerID, "versions": len(res.Versions)})
	return res, nil
}

// Share issues a new public token for an owned resume.
func (s *Service) Share(ctx context.Context, ownerID string, id int64) (string, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return "", err
	}
	token, err := s.Shares.Issue(ctx, id)
	if err != nil {
		return "", fmt.Errorf("issue share link: %w", err)
	}
	telemetry.Info("resume.shared", map[string]any{"resume_id": id, "user_id": ownerID})
	return token, nil
}

// Export renders an owned resume. ownerName is the fallback for a missing name in content.
func (s *Service) Export(ctx context.Context, ownerID, ownerName string, id int64) (Export, error) {
	res, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Export{}, err
	}
	doc := model.FromContent(res.Title, res.Content, res.LatestAnalysis, ownerName)
	renderFn := s.Render
	if renderFn == nil {
		renderFn = render.PDF
	}
	data, err := renderFn(doc)
	if err != nil {
		return Export{}, fmt.Errorf("%w: %v", render.ErrRender, err)
	}
	return Export{FileName: render.ExportFileName(res.Title), Data: data}, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return "", &ValidationError{Fields: []FieldError{{Field: "title", Issue: "required"}}}
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return "", &ValidationError{Fields: []FieldError{{Field: "title", Issue: "too_long"}}}
	}
	return title, nil
}

func orEmpty(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	return doc
}
