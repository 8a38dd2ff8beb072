package llm

// MockResult is the deterministic stand-in used whenever the live model is unavailable.
func MockResult(jobDescription, sourceKind string) Result {
	score := 60
	if jobDescription != "" {
		score += 8
	}
	if sourceKind == "github" {
		score += 4
	}
	if score > 96 {
		score = 96
	}
	return Result{
		ATSScore:       score,
		OverallSummary: "Candidate shows practical engineering impact but can improve keyword alignment and clarity.",
		Strengths: []string{
			"Clear evidence of technical delivery.",
			"Strong potential for backend and platform roles.",
		},
		Weaknesses: []string{
			"Profile needs stronger role-specific terminology.",
			"Some achievements should include clearer scope and impact numbers.",
		},
		MissingKeywords: []string{"system design", "stakeholder management", "production reliability"},
		FeatureHighlights: []string{
			"Demonstrated measurable improvements in performance.",
			"Hands-on experience with APIs and async workflows.",
		},
		RewrittenSummary: "Backend-focused engineer with proven delivery in API systems, async pipelines, and performance optimization with measurable outcomes.",
		ImprovedBullets: []string{
			"Built and optimized backend APIs, improving response latency and throughput under production load.",
			"Implemented asynchronous processing workflows for long-running analysis jobs, reducing request timeout risks.",
			"Improved service reliability by adding structured error handling and retry/backoff patterns.",
		},
		NextActions: []string{
			"Add 3-5 role-specific keywords from target job description.",
			"Rewrite top experience bullets with clear action + metric format.",
			"Highlight architecture and system ownership examples.",
		},
	}
}
