package compliance

import (
	"unicode/utf8"

	"github.com/publishq/publishqd/internal/domain"
)

// Engagement score weights. The score starts at the base, is adjusted for
// content length, media, hashtags and scheduling, and is clamped to [0, 100].
const (
	scoreBase = 50

	shortContentChars  = 20
	lengthSweetSpotMin = 80
	lengthSweetSpotMax = 300
	lengthLongMax      = 1000

	scoreLengthSweetSpot = 20
	scoreLengthGood      = 10
	scoreLengthTooShort  = -15

	scoreMediaPresent = 15

	tagsGoodMax      = 5
	scoreTagsGood    = 10
	scoreNoTags      = -5
	scoreTooManyTags = -10

	scoreScheduled = 5
)

// scoreItem computes the 0-100 engagement score for an item.
func scoreItem(item *domain.Item, maxTags int) int {
	score := scoreBase

	switch length := utf8.RuneCountInString(item.Content); {
	case length >= lengthSweetSpotMin && length <= lengthSweetSpotMax:
		score += scoreLengthSweetSpot
	case length > lengthSweetSpotMax && length <= lengthLongMax:
		score += scoreLengthGood
	case length < shortContentChars:
		score += scoreLengthTooShort
	}

	if len(item.MediaURLs) > 0 {
		score += scoreMediaPresent
	}

	switch tags := len(item.Tags); {
	case tags == 0:
		score += scoreNoTags
	case tags <= tagsGoodMax:
		score += scoreTagsGood
	case tags > maxTags:
		score += scoreTooManyTags
	}

	if !item.ScheduledAt.IsZero() {
		score += scoreScheduled
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
