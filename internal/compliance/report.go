package compliance

import "github.com/publishq/publishqd/internal/domain"

// Severity classifies how strongly an issue affects publication.
type Severity string

// Issue severities. Critical issues block enqueueing.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is a single finding against the content.
type Issue struct {
	Platform domain.Platform `json:"platform,omitempty"`
	Severity Severity        `json:"severity"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
}

// PlatformResult holds the findings for a single platform.
type PlatformResult struct {
	Platform domain.Platform `json:"platform"`
	Name     string          `json:"name"`
	Eligible bool            `json:"eligible"`
	Issues   []Issue         `json:"issues,omitempty"`
}

// Report is the outcome of a compliance evaluation.
type Report struct {
	Eligible bool             `json:"eligible"`
	Score    int              `json:"score"`
	Results  []PlatformResult `json:"results"`
	Issues   []Issue          `json:"issues,omitempty"`
}

// BlockingReasons collects the messages of every critical issue, content-wide
// findings first, then per-platform ones in platform order.
func (r *Report) BlockingReasons() []string {
	var reasons []string
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			reasons = append(reasons, issue.Message)
		}
	}
	for _, result := range r.Results {
		for _, issue := range result.Issues {
			if issue.Severity == SeverityCritical {
				reasons = append(reasons, issue.Message)
			}
		}
	}
	return reasons
}
