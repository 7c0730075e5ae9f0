package compliance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publishq/publishqd/internal/domain"
)

var checkNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// draftItem returns an item that passes every rule with a full score.
func draftItem(platforms ...domain.Platform) *domain.Item {
	item := &domain.Item{
		Title:       "Product launch",
		Content:     strings.Repeat("all signal no noise ", 5),
		Tags:        []string{"launch", "product", "news"},
		MediaURLs:   []string{"https://cdn.example.com/launch.png"},
		ScheduledAt: checkNow,
	}
	if len(platforms) == 0 {
		platforms = []domain.Platform{domain.PlatformTwitter}
	}
	for _, p := range platforms {
		item.Platforms = append(item.Platforms, domain.PlatformTarget{
			Platform: p,
			Status:   domain.TargetStatusPending,
		})
	}
	return item
}

func hasIssue(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestChecker_CleanContentPasses(t *testing.T) {
	checker := NewChecker(Config{})

	report := checker.Evaluate(draftItem())

	assert.True(t, report.Eligible)
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Issues)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.PlatformTwitter, report.Results[0].Platform)
	assert.Equal(t, "Twitter", report.Results[0].Name)
	assert.True(t, report.Results[0].Eligible)

	assert.Empty(t, checker.Check(context.Background(), draftItem()))
}

func TestChecker_EmptyContentIsBlocked(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Content = "   "

	report := checker.Evaluate(item)

	assert.False(t, report.Eligible)
	reasons := report.BlockingReasons()
	require.Len(t, reasons, 1)
	assert.Equal(t, "content is empty", reasons[0])
}

func TestChecker_SpamPhraseIsBlocked(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Content = "Limited TIME offer on the new release, preorders open for everyone this weekend only."

	report := checker.Evaluate(item)

	assert.False(t, report.Eligible)
	reasons := report.BlockingReasons()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "limited time offer")
}

func TestChecker_PlatformCharLimit(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem(domain.PlatformTwitter, domain.PlatformFacebook)
	item.Content = strings.Repeat("a", 301)

	report := checker.Evaluate(item)

	require.Len(t, report.Results, 2)
	twitter, facebook := report.Results[0], report.Results[1]

	assert.False(t, twitter.Eligible)
	require.Len(t, twitter.Issues, 1)
	assert.Equal(t, SeverityCritical, twitter.Issues[0].Severity)
	assert.Contains(t, twitter.Issues[0].Message, "Twitter")
	assert.Contains(t, twitter.Issues[0].Message, "280")

	assert.True(t, facebook.Eligible)
	assert.Empty(t, facebook.Issues)

	assert.False(t, report.Eligible)
}

func TestChecker_MediaLimitBlocks(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem(domain.PlatformTikTok)
	item.MediaURLs = []string{
		"https://cdn.example.com/a.mp4",
		"https://cdn.example.com/b.mp4",
	}

	report := checker.Evaluate(item)

	assert.False(t, report.Eligible)
	reasons := report.BlockingReasons()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "Tiktok")
	assert.Contains(t, reasons[0], "media attachments")
}

func TestChecker_LinkLimitIsWarning(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem(domain.PlatformInstagram)
	item.Content = "Check https://example.com/launch for availability and ship dates this week."

	report := checker.Evaluate(item)

	assert.True(t, report.Eligible)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Eligible)
	assert.True(t, hasIssue(report.Results[0].Issues, "over_link_limit"))
	assert.Empty(t, checker.Check(context.Background(), item))
}

func TestChecker_ShoutingIsWarning(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Content = "THIS LAUNCH IS COMPLETELY UNMISSABLE AND HUGE"

	report := checker.Evaluate(item)

	assert.True(t, report.Eligible)
	assert.True(t, hasIssue(report.Issues, "all_caps"))
}

func TestChecker_TagLimits(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Tags = nil
	for i := 0; i < 11; i++ {
		item.Tags = append(item.Tags, fmt.Sprintf("tag%d", i))
	}

	report := checker.Evaluate(item)

	assert.True(t, report.Eligible)
	assert.True(t, hasIssue(report.Issues, "too_many_tags"))
	require.Len(t, report.Results, 1)
	assert.True(t, hasIssue(report.Results[0].Issues, "over_tag_limit"))
}

func TestChecker_LowScoreIsBlocked(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Content = "hi"
	item.Tags = nil
	item.MediaURLs = nil
	item.ScheduledAt = time.Time{}

	report := checker.Evaluate(item)

	assert.False(t, report.Eligible)
	assert.Equal(t, 30, report.Score)
	reasons := report.BlockingReasons()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "engagement score 30")
}

func TestChecker_MinScoreFromConfig(t *testing.T) {
	checker := NewChecker(Config{MinScore: 90})
	item := draftItem()
	item.MediaURLs = nil

	report := checker.Evaluate(item)

	assert.Equal(t, 85, report.Score)
	assert.False(t, report.Eligible)
}

func TestChecker_PreviewCoversAllPlatforms(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Platforms = nil

	report := checker.Evaluate(item)

	assert.True(t, report.Eligible)
	var names []string
	for _, result := range report.Results {
		names = append(names, result.Name)
	}
	assert.Equal(t, []string{"Twitter", "Facebook", "Instagram", "Linkedin", "Tiktok"}, names)
}

func TestChecker_MissingTitleIsInfo(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem()
	item.Title = ""

	report := checker.Evaluate(item)

	assert.True(t, report.Eligible)
	assert.True(t, hasIssue(report.Issues, "missing_title"))
}

func TestCheck_OrdersContentReasonsFirst(t *testing.T) {
	checker := NewChecker(Config{})
	item := draftItem(domain.PlatformTikTok)
	item.Content = "Buy now and tell your friends about the release we have been building all spring season."
	item.MediaURLs = []string{
		"https://cdn.example.com/a.mp4",
		"https://cdn.example.com/b.mp4",
	}

	reasons := checker.Check(context.Background(), item)

	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "spam phrase")
	assert.Contains(t, reasons[1], "media attachments")
}

func TestRuleFor(t *testing.T) {
	rule, ok := RuleFor(domain.PlatformTwitter)
	require.True(t, ok)
	assert.Equal(t, 280, rule.MaxChars)

	_, ok = RuleFor(domain.Platform("myspace"))
	assert.False(t, ok)
}

func TestIsShouting(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"all caps", "EVERYTHING HERE IS LOUD", true},
		{"short caps", "OK GO", false},
		{"mostly lower", "just a normal sentence about the launch", false},
		{"no letters", "1234567890 !!! ???", false},
		{"mixed case", "Launch Day Is Here And We Are Ready", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isShouting(tt.content))
		})
	}
}
