package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxTextChars = 12000

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ToText renders a profile as prompt-friendly plain text.
func ToText(p Profile) string {
	sourceType := p.SourceType
	if sourceType == "" {
		sourceType = "github"
	}
	lines := []string{
		"Source Type: " + sourceType,
		"Input: " + p.Input,
	}

	if p.SourceType == "github_repo" {
		lines = append(lines,
			"Repository: "+p.FullName,
			"Description: "+p.Description,
			fmt.Sprintf("Stars: %d", p.Stars),
			fmt.Sprintf("Forks: %d", p.Forks),
			"Topics: "+strings.Join(p.Topics, ", "),
			"Languages: "+strings.Join(p.Languages, ", "),
			"Last Push: "+p.PushedAt,
			"README Excerpt:",
			p.ReadmeExcerpt,
		)
	} else {
		lines = append(lines,
			"Username: "+p.Username,
			"Name: "+p.Name,
			"Bio: "+p.Bio,
			fmt.Sprintf("Followers: %d", p.Followers),
			fmt.Sprintf("Public Repos: %d", p.PublicRepos),
			"Top Languages: "+strings.Join(p.TopLanguages, ", "),
			"Recent Repositories:",
			formatRecentRepos(p.RecentRepos),
		)
	}

	text := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return truncate(text, maxTextChars)
}

func formatRecentRepos(repos []RepoInfo) string {
	if len(repos) > recentRepos {
		repos = repos[:recentRepos]
	}
	chunks := make([]string, 0, len(repos))
	for _, r := range repos {
		chunks = append(chunks, fmt.Sprintf("- %s | lang=%s | stars=%d | updated=%s | %s",
			r.Name, r.Language, r.Stars, r.UpdatedAt, r.Description))
	}
	return strings.Join(chunks, "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func sortedSet(set map[string]struct{}, limit int) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// orderedKeys returns the keys of a JSON object in document order.
func orderedKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object")
	}
	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key")
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
