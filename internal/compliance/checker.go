// Package compliance evaluates content items against per-platform publishing
// rules and scores their engagement potential. Critical findings make an item
// ineligible for the queue; warnings and info findings are advisory.
package compliance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/publishq/publishqd/internal/domain"
)

// Defaults for the checker configuration.
const (
	DefaultMinScore = 40
	DefaultMaxTags  = 10
)

// Config holds the checker settings.
type Config struct {
	MinScore int
	MaxTags  int
}

// Checker evaluates content items. It is stateless and safe for concurrent
// use.
type Checker struct {
	cfg Config
}

// NewChecker creates a checker, applying defaults for unset config values.
func NewChecker(cfg Config) *Checker {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.MaxTags <= 0 {
		cfg.MaxTags = DefaultMaxTags
	}
	return &Checker{cfg: cfg}
}

var (
	titleCaser  = cases.Title(language.English)
	linkPattern = regexp.MustCompile(`https?://[^\s]+`)
)

// spamPhrases trip a critical finding regardless of platform.
var spamPhrases = []string{
	"buy now",
	"click here",
	"limited time offer",
	"act now",
	"100% free",
	"make money fast",
}

// Evaluate checks the item against every targeted platform and scores it.
// Items without platform targets are previewed against all platforms.
func (c *Checker) Evaluate(item *domain.Item) Report {
	report := Report{
		Issues: c.contentIssues(item),
	}

	for _, platform := range targetedPlatforms(item) {
		report.Results = append(report.Results, c.platformResult(item, platform))
	}

	report.Score = scoreItem(item, c.cfg.MaxTags)
	if report.Score < c.cfg.MinScore {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityCritical,
			Code:     "low_score",
			Message:  fmt.Sprintf("engagement score %d is below the minimum %d", report.Score, c.cfg.MinScore),
		})
	}

	report.Eligible = len(report.BlockingReasons()) == 0
	return report
}

// Check reports the blocking reasons for an item. An empty slice means the
// item may be enqueued.
func (c *Checker) Check(ctx context.Context, item *domain.Item) []string {
	report := c.Evaluate(item)
	return report.BlockingReasons()
}

func (c *Checker) contentIssues(item *domain.Item) []Issue {
	var issues []Issue

	if strings.TrimSpace(item.Content) == "" {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Code:     "empty_content",
			Message:  "content is empty",
		})
	}

	lowered := strings.ToLower(item.Content)
	for _, phrase := range spamPhrases {
		if strings.Contains(lowered, phrase) {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				Code:     "spam_phrase",
				Message:  fmt.Sprintf("content contains the spam phrase %q", phrase),
			})
		}
	}

	if isShouting(item.Content) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     "all_caps",
			Message:  "content is mostly upper case",
		})
	}

	if tags := len(item.Tags); tags > c.cfg.MaxTags {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     "too_many_tags",
			Message:  fmt.Sprintf("%d tags exceed the recommended maximum of %d", tags, c.cfg.MaxTags),
		})
	}

	if strings.TrimSpace(item.Title) == "" {
		issues = append(issues, Issue{
			Severity: SeverityInfo,
			Code:     "missing_title",
			Message:  "title is empty",
		})
	}

	return issues
}

func (c *Checker) platformResult(item *domain.Item, platform domain.Platform) PlatformResult {
	result := PlatformResult{
		Platform: platform,
		Name:     titleCaser.String(string(platform)),
		Eligible: true,
	}

	rule, ok := RuleFor(platform)
	if !ok {
		return result
	}

	if length := utf8.RuneCountInString(item.Content); length > rule.MaxChars {
		result.Issues = append(result.Issues, Issue{
			Platform: platform,
			Severity: SeverityCritical,
			Code:     "over_char_limit",
			Message:  fmt.Sprintf("%s: content length %d exceeds the %d character limit", result.Name, length, rule.MaxChars),
		})
	}

	if media := len(item.MediaURLs); media > rule.MaxMedia {
		result.Issues = append(result.Issues, Issue{
			Platform: platform,
			Severity: SeverityCritical,
			Code:     "over_media_limit",
			Message:  fmt.Sprintf("%s: %d media attachments exceed the maximum of %d", result.Name, media, rule.MaxMedia),
		})
	}

	if links := len(linkPattern.FindAllString(item.Content, -1)); links > rule.MaxLinks {
		result.Issues = append(result.Issues, Issue{
			Platform: platform,
			Severity: SeverityWarning,
			Code:     "over_link_limit",
			Message:  fmt.Sprintf("%s: %d links exceed the maximum of %d", result.Name, links, rule.MaxLinks),
		})
	}

	if tags := len(item.Tags); tags > rule.MaxTags {
		result.Issues = append(result.Issues, Issue{
			Platform: platform,
			Severity: SeverityWarning,
			Code:     "over_tag_limit",
			Message:  fmt.Sprintf("%s: %d tags exceed the platform maximum of %d", result.Name, tags, rule.MaxTags),
		})
	}

	for _, issue := range result.Issues {
		if issue.Severity == SeverityCritical {
			result.Eligible = false
			break
		}
	}

	return result
}

func targetedPlatforms(item *domain.Item) []domain.Platform {
	if len(item.Platforms) == 0 {
		return domain.AllPlatforms()
	}
	platforms := make([]domain.Platform, 0, len(item.Platforms))
	for idx := range item.Platforms {
		platforms = append(platforms, item.Platforms[idx].Platform)
	}
	return platforms
}

// isShouting reports whether the content is predominantly upper case. Short
// strings never count as shouting.
func isShouting(s string) bool {
	var letters, upper int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 12 {
		return false
	}
	return float64(upper)/float64(letters) > 0.7
}
