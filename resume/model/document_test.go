package model

import (
	"reflect"
	"testing"
)

func TestFromContent(t *testing.T) {
	content := map[string]any{
		"name":     "Ada Lovelace",
		"headline": "Backend Engineer",
		"contact":  map[string]any{"email": "ada@example.com", "phone": "123"},
		"summary":  []any{"Builds APIs.", "Ships fast."},
		"skills":   "Go, Postgres , ,Redis",
		"experience": []any{
			map[string]any{"role": "Engineer", "impact": "Cut latency 40%"},
			"Intern at Acme",
		},
		"education": "- BSc Maths\n\n- MSc CS",
	}
	analysis := map[string]any{
		"improved_bullets": []any{"1", "2", "3", "4", "5", "6", "7"},
	}

	doc := FromContent("My CV", content, analysis, "ada")
	if doc.FullName != "Ada Lovelace" || doc.Headline != "Backend Engineer" {
		t.Fatalf("unexpected header %+v", doc)
	}
	if doc.ContactLine != "ada@example.com | 123" {
		t.Fatalf("unexpected contact line %q", doc.ContactLine)
	}
	if doc.Summary != "Builds APIs.\nShips fast." {
		t.Fatalf("unexpected summary %q", doc.Summary)
	}
	if !reflect.DeepEqual(doc.Skills, []string{"Go", "Postgres", "Redis"}) {
		t.Fatalf("unexpected skills %v", doc.Skills)
	}
	if !reflect.DeepEqual(doc.Experience, []string{"Engineer - Cut latency 40%", "Intern at Acme"}) {
		t.Fatalf("unexpected experience %v", doc.Experience)
	}
	if !reflect.DeepEqual(doc.Education, []string{"BSc Maths", "MSc CS"}) {
		t.Fatalf("unexpected education %v", doc.Education)
	}
	if len(doc.SuggestedBullets) != MaxSuggestedBullets {
		t.Fatalf("expected %d bullets, got %d", MaxSuggestedBullets, len(doc.SuggestedBullets))
	}
}

func TestFromContentFallsBackToOwnerName(t *testing.T) {
	doc := FromContent("t", map[string]any{}, nil, "grace")
	if doc.FullName != "grace" {
		t.Fatalf("expected fallback name, got %q", doc.FullName)
	}
}
