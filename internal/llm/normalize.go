package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	defaultScore = 65
	maxListItems = 12
)

// ExtractJSON pulls the outermost JSON object out of a model reply,
// tolerating code fences and surrounding prose.
func ExtractJSON(text string) (map[string]any, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, ErrNoJSON
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode response json: %w", err)
	}
	return payload, nil
}

// Normalize coerces a decoded payload into a Result. Only an uncoercible score
// is an error; an absent score defaults to 65, an explicit null does not.
func Normalize(payload map[string]any) (Result, error) {
	score := defaultScore
	if v, ok := payload["ats_score"]; ok {
		var err error
		if score, err = asScore(v); err != nil {
			return Result{}, err
		}
	}
	return Result{
		ATSScore:          score,
		OverallSummary:    asString(payload["overall_summary"]),
		Strengths:         asStringList(payload["strengths"]),
		Weaknesses:        asStringList(payload["weaknesses"]),
		MissingKeywords:   asStringList(payload["missing_keywords"]),
		FeatureHighlights: asStringList(payload["feature_highlights"]),
		RewrittenSummary:  asString(payload["rewritten_summary"]),
		ImprovedBullets:   asStringList(payload["improved_bullets"]),
		NextActions:       asStringList(payload["next_actions"]),
	}, nil
}

func asScore(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("ats_score is null")
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("ats_score not finite")
		}
		return int(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("ats_score %q: %w", val, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("ats_score has type %T", v)
	}
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, asString(item))
	}
	if len(out) > maxListItems {
		out = out[:maxListItems]
	}
	return out
}
