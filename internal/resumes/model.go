package resumes

import "time"

// MaxTitleLength bounds Resume.Title in runes.
const MaxTitleLength = 255

// Resume is a user-owned document with free-form JSON content.
type Resume struct {
	ID             int64          `json:"id"`
	OwnerID        string         `json:"-"`
	Title          string         `json:"title"`
	Content        map[string]any `json:"content"`
	LatestAnalysis map[string]any `json:"latest_analysis"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	// Versions are ordered newest first.
	Versions []Version `json:"versions"`
}

// Version is an immutable snapshot written on every create and patch.
type Version struct {
	ID               int64          `json:"id"`
	ResumeID         int64          `json:"-"`
	Content          map[string]any `json:"content"`
	AnalysisSnapshot map[string]any `json:"analysis_snapshot"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (r Resume) snapshot() Version {
	return Version{
		ResumeID:         r.ID,
		Content:          r.Content,
		AnalysisSnapshot: r.LatestAnalysis,
	}
}
