// Package domain contains the shared data model for the publishing queue.
package domain

import "fmt"

// Platform represents a social network a content item can be published to.
type Platform string

// Supported platforms.
const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
)

// AllPlatforms returns every supported platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformTwitter,
		PlatformFacebook,
		PlatformInstagram,
		PlatformLinkedIn,
		PlatformTikTok,
	}
}

// IsValid checks if the platform is supported.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformTwitter, PlatformFacebook, PlatformInstagram,
		PlatformLinkedIn, PlatformTikTok:
		return true
	}
	return false
}

// ParsePlatform converts a string into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown platform: %q", s)
	}
	return p, nil
}
