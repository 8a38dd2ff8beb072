package llm

import (
	"strings"
	"unicode/utf8"
)

// MaxSourceChars caps the candidate text embedded in a prompt.
const MaxSourceChars = 12000

const promptHeader = "You are a senior technical recruiter and ATS reviewer. " +
	"Analyze the candidate source and return STRICT JSON only. " +
	"No markdown, no explanation.\n\n" +
	"Required JSON schema:\n" +
	"{\n" +
	"  \"ats_score\": number (0-100),\n" +
	"  \"overall_summary\": string,\n" +
	"  \"strengths\": string[],\n" +
	"  \"weaknesses\": string[],\n" +
	"  \"missing_keywords\": string[],\n" +
	"  \"feature_highlights\": string[],\n" +
	"  \"rewritten_summary\": string,\n" +
	"  \"improved_bullets\": string[],\n" +
	"  \"next_actions\": string[]\n" +
	"}\n\n"

// BuildPrompt renders the analysis prompt for a source.
func BuildPrompt(sourceText, jobDescription, sourceKind string) string {
	jd := jobDescription
	if jd == "" {
		jd = "Not provided"
	}
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("Source kind: " + sourceKind + "\n")
	b.WriteString("Target job description:\n" + jd + "\n\n")
	b.WriteString("Candidate source:\n")
	b.WriteString(capChars(sourceText, MaxSourceChars))
	b.WriteString("\n")
	return b.String()
}

func capChars(s string, n int) string {
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
