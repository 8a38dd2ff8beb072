package analysis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"cv-analyzer/internal/billing"
	"cv-analyzer/internal/github"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/resultcache"
	"cv-analyzer/internal/shared/storage/object/local"
)

type recordingQueue struct {
	mu   sync.Mutex
	sent []queue.Message
}

func (q *recordingQueue) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, msg)
	return nil
}

func (q *recordingQueue) messages() []queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Message(nil), q.sent...)
}

type fakeScraper struct {
	profile github.Profile
	err     error
	calls   int
}

func (f *fakeScraper) Scrape(_ context.Context, githubURL string) (github.Profile, error) {
	f.calls++
	if f.err != nil {
		return github.Profile{}, f.err
	}
	p := f.profile
	p.Input = githubURL
	return p, nil
}

type mockAnalyzer struct {
	lastText string
}

func (m *mockAnalyzer) Analyze(_ context.Context, text, jobDescription, sourceKind string) llm.Outcome {
	m.lastText = text
	return llm.Outcome{
		Result:   llm.MockResult(jobDescription, sourceKind),
		Provider: "mock",
		Fallback: llm.FallbackNotConfigured,
	}
}

type fixture struct {
	repo      *MemoryRepo
	queue     *recordingQueue
	cache     *resultcache.MemoryCache
	billing   *billing.Service
	scraper   *fakeScraper
	analyzer  *mockAnalyzer
	svc       *Service
	processor *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewMemoryRepo(),
		queue:    &recordingQueue{},
		cache:    resultcache.NewMemoryCache(64),
		billing:  billing.NewService(25),
		scraper:  &fakeScraper{profile: github.Profile{SourceType: "github_user", Username: "octocat", Name: "The Octocat"}},
		analyzer: &mockAnalyzer{},
	}
	store := local.New(t.TempDir())
	f.svc = &Service{
		Repo:           f.repo,
		Gate:           f.billing,
		Store:          store,
		Queue:          f.queue,
		Cache:          f.cache,
		MaxUploadBytes: 1024,
	}
	f.processor = &Processor{
		Repo:      f.repo,
		Store:     store,
		Scraper:   f.scraper,
		Analyzer:  f.analyzer,
		Cache:     f.cache,
		Usage:     f.billing,
		ResultTTL: 30 * time.Minute,
	}
	return f
}

func cvInput(owner, body string) CreateInput {
	return CreateInput{
		OwnerID:    owner,
		SourceType: "cv",
		File:       strings.NewReader(body),
		FileName:   "resume.txt",
		FileSize:   int64(len(body)),
	}
}
