package compliance

import "github.com/publishq/publishqd/internal/domain"

// PlatformRule bounds the content shape a platform accepts.
type PlatformRule struct {
	MaxChars int
	MaxMedia int
	MaxLinks int
	MaxTags  int
}

// platformRules mirrors the published limits of each network. Instagram and
// TikTok captions do not render clickable links.
var platformRules = map[domain.Platform]PlatformRule{
	domain.PlatformTwitter:   {MaxChars: 280, MaxMedia: 4, MaxLinks: 2, MaxTags: 5},
	domain.PlatformFacebook:  {MaxChars: 63206, MaxMedia: 10, MaxLinks: 10, MaxTags: 30},
	domain.PlatformInstagram: {MaxChars: 2200, MaxMedia: 10, MaxLinks: 0, MaxTags: 30},
	domain.PlatformLinkedIn:  {MaxChars: 3000, MaxMedia: 9, MaxLinks: 5, MaxTags: 10},
	domain.PlatformTikTok:    {MaxChars: 2200, MaxMedia: 1, MaxLinks: 0, MaxTags: 20},
}

// RuleFor returns the rule for a platform.
func RuleFor(p domain.Platform) (PlatformRule, bool) {
	rule, ok := platformRules[p]
	return rule, ok
}
