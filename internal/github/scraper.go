// Package github turns a GitHub profile or repository URL into analysis text.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.github.com"
	userAgent      = "cv-analyzer-bot"
	requestTimeout = 15 * time.Second
	readmeMaxChars = 5000
	maxLanguages   = 10
	recentRepos    = 8
)

// ScrapeError marks a terminal failure caused by the GitHub source itself.
type ScrapeError struct {
	Message string
	Err     error
}

func (e *ScrapeError) Error() string { return e.Message }
func (e *ScrapeError) Unwrap() error { return e.Err }

func scrapeErr(msg string) error { return &ScrapeError{Message: msg} }

// IsScrapeError reports whether err came from URL classification or the GitHub API.
func IsScrapeError(err error) bool {
	var se *ScrapeError
	return errors.As(err, &se)
}

// Mode is the kind of GitHub resource a URL points at.
type Mode string

const (
	ModeUser Mode = "user"
	ModeRepo Mode = "repo"
)

// Target is a classified GitHub URL.
type Target struct {
	Mode     Mode
	Username string
	Owner    string
	Repo     string
}

// Classify parses a GitHub URL. One path segment is a user, two or more a repository.
func Classify(raw string) (Target, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, &ScrapeError{Message: "Failed to parse GitHub URL.", Err: err}
	}
	if !strings.Contains(strings.ToLower(parsed.Host), "github.com") {
		return Target{}, scrapeErr("Only github.com URLs are supported.")
	}
	var parts []string
	for _, p := range strings.Split(parsed.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	switch {
	case len(parts) == 0:
		return Target{}, scrapeErr("Invalid GitHub URL.")
	case len(parts) >= 2:
		return Target{Mode: ModeRepo, Owner: parts[0], Repo: parts[1]}, nil
	default:
		return Target{Mode: ModeUser, Username: parts[0]}, nil
	}
}

// Profile is the scraped summary of a user or repository.
type Profile struct {
	SourceType string `json:"source_type"`
	Input      string `json:"input"`

	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	Topics        []string `json:"topics"`
	Languages     []string `json:"languages"`
	ReadmeExcerpt string   `json:"readme_excerpt"`
	PushedAt      string   `json:"pushed_at"`

	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Bio          string     `json:"bio"`
	Followers    int        `json:"followers"`
	PublicRepos  int        `json:"public_repos"`
	TopLanguages []string   `json:"top_languages"`
	RecentRepos  []RepoInfo `json:"recent_repos"`
}

// Meta returns the mode-specific fields for embedding in an analysis result.
func (p Profile) Meta() map[string]any {
	if p.SourceType == "github_repo" {
		return map[string]any{
			"source_type":    p.SourceType,
			"input":          p.Input,
			"full_name":      p.FullName,
			"description":    p.Description,
			"stars":          p.Stars,
			"forks":          p.Forks,
			"topics":         p.Topics,
			"languages":      p.Languages,
			"readme_excerpt": p.ReadmeExcerpt,
			"pushed_at":      p.PushedAt,
		}
	}
	return map[string]any{
		"source_type":   p.SourceType,
		"input":         p.Input,
		"username":      p.Username,
		"name":          p.Name,
		"bio":           p.Bio,
		"followers":     p.Followers,
		"public_repos":  p.PublicRepos,
		"top_languages": p.TopLanguages,
		"recent_repos":  p.RecentRepos,
	}
}

// RepoInfo is one entry of a user's recently updated repositories.
type RepoInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Language    string `json:"language"`
	UpdatedAt   string `json:"updated_at"`
}

// Scraper calls the GitHub REST API.
type Scraper struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewScraper builds a scraper with the default timeout.
func NewScraper(baseURL, token string) *Scraper {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   strings.TrimSpace(token),
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

// Scrape classifies the URL and fetches the matching profile.
func (s *Scraper) Scrape(ctx context.Context, githubURL string) (Profile, error) {
	target, err := Classify(githubURL)
	if err != nil {
		return Profile{}, err
	}
	switch target.Mode {
	case ModeRepo:
		return s.scrapeRepo(ctx, target.Owner, target.Repo, githubURL)
	case ModeUser:
		return s.scrapeUser(ctx, target.Username, githubURL)
	default:
		return Profile{}, fmt.Errorf("unknown github mode %q", target.Mode)
	}
}

type repoResponse struct {
	FullName        string   `json:"full_name"`
	Description     *string  `json:"description"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	Topics          []string `json:"topics"`
	PushedAt        string   `json:"pushed_at"`
}

func (s *Scraper) scrapeRepo(ctx context.Context, owner, repo, input string) (Profile, error) {
	base := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)

	var repoData repoResponse
	if err := s.getJSON(ctx, base, &repoData); err != nil {
		return Profile{}, err
	}
	var langRaw json.RawMessage
	if err := s.getJSON(ctx, base+"/languages", &langRaw); err != nil {
		return Profile{}, err
	}
	languages, err := orderedKeys(langRaw)
	if err != nil {
		return Profile{}, &ScrapeError{Message: "Unexpected GitHub languages payload.", Err: err}
	}
	if len(languages) > maxLanguages {
		languages = languages[:maxLanguages]
	}
	readme := s.getText(ctx, base+"/readme")

	fullName := repoData.FullName
	if fullName == "" {
		fullName = owner + "/" + repo
	}
	topics := repoData.Topics
	if topics == nil {
		topics = []string{}
	}
	return Profile{
		SourceType:    "github_repo",
		Input:         input,
		FullName:      fullName,
		Description:   deref(repoData.Description),
		Stars:         repoData.StargazersCount,
		Forks:         repoData.ForksCount,
		Topics:        topics,
		Languages:     languages,
		ReadmeExcerpt: truncate(readme, readmeMaxChars),
		PushedAt:      repoData.PushedAt,
	}, nil
}

type userResponse struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	Followers   int     `json:"followers"`
	PublicRepos int     `json:"public_repos"`
}

type userRepoResponse struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	StargazersCount int     `json:"stargazers_count"`
	Language        *string `json:"language"`
	UpdatedAt       string  `json:"updated_at"`
}

func (s *Scraper) scrapeUser(ctx context.Context, username, input string) (Profile, error) {
	base := "/users/" + url.PathEscape(username)

	var user userResponse
	if err := s.getJSON(ctx, base, &user); err != nil {
		return Profile{}, err
	}
	var repos []userRepoResponse
	if err := s.getJSON(ctx, base+fmt.Sprintf("/repos?sort=updated&per_page=%d", recentRepos), &repos); err != nil {
		return Profile{}, err
	}

	seen := map[string]struct{}{}
	summaries := make([]RepoInfo, 0, len(repos))
	for _, r := range repos {
		lang := deref(r.Language)
		if lang != "" {
			seen[lang] = struct{}{}
		}
		summaries = append(summaries, RepoInfo{
			Name:        r.Name,
			Description: deref(r.Description),
			Stars:       r.StargazersCount,
			Language:    lang,
			UpdatedAt:   r.UpdatedAt,
		})
	}

	login := user.Login
	if login == "" {
		login = username
	}
	return Profile{
		SourceType:   "github_user",
		Input:        input,
		Username:     login,
		Name:         deref(user.Name),
		Bio:          deref(user.Bio),
		Followers:    user.Followers,
		PublicRepos:  user.PublicRepos,
		TopLanguages: sortedSet(seen, maxLanguages),
		RecentRepos:  summaries,
	}, nil
}

func (s *Scraper) newRequest(ctx context.Context, path, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return req, nil
}

func (s *Scraper) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: requestTimeout}
}

// getJSON fails with a ScrapeError on any status >= 400. Transport errors are
// returned unwrapped so the caller may retry them.
func (s *Scraper) getJSON(ctx context.Context, path string, out any) error {
	req, err := s.newRequest(ctx, path, "application/vnd.github+json")
	if err != nil {
		return err
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("github request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return scrapeErr(fmt.Sprintf("GitHub API error (%d).", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ScrapeError{Message: "Unexpected GitHub API response.", Err: err}
	}
	return nil
}

// getText returns "" for any failure; a missing README is not an error.
func (s *Scraper) getText(ctx context.Context, path string) string {
	req, err := s.newRequest(ctx, path, "application/vnd.github.raw+json")
	if err != nil {
		return ""
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
