// Package llm produces the normalized nine-field analysis of a candidate source.
package llm

import (
	"context"
	"errors"
)

// Provider sends one prompt to a model and returns the raw text reply.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fallback reasons recorded when the mock result is used.
const (
	FallbackNotConfigured = "not_configured"
	FallbackCallFailed    = "call_failed"
)

// ErrNoJSON is returned when a reply holds no brace-delimited JSON object.
var ErrNoJSON = errors.New("response did not contain valid JSON object")

// Result is the normalized analysis payload.
type Result struct {
	ATSScore          int      `json:"ats_score"`
	OverallSummary    string   `json:"overall_summary"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	MissingKeywords   []string `json:"missing_keywords"`
	FeatureHighlights []string `json:"feature_highlights"`
	RewrittenSummary  string   `json:"rewritten_summary"`
	ImprovedBullets   []string `json:"improved_bullets"`
	NextActions       []string `json:"next_actions"`
}

// Outcome is what Analyze returns: always a usable Result, plus why a fallback happened.
type Outcome struct {
	Result   Result
	Provider string
	Fallback string
	Err      error
}
