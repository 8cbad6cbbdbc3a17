package resource

import (
	"fmt"
	"strings"
)

// Kind identifies an RTA resource type.
type Kind uint8

const (
	// KindUnknown is the zero value and is never a valid subscription kind.
	KindUnknown Kind = iota

	// KindDevicePresence tracks which devices a user is signed in on.
	KindDevicePresence

	// KindTitlePresence tracks whether a user started or ended a title.
	KindTitlePresence

	// KindStatistic tracks a single user statistic.
	KindStatistic

	// KindSocialRelationship tracks changes to a user's friends list.
	KindSocialRelationship

	// KindMultiplayerSession delivers multiplayer session shoulder taps.
	KindMultiplayerSession

	// KindAchievementProgress tracks achievement progression for a title.
	KindAchievementProgress
)

// Kinds lists every subscribable kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindDevicePresence,
		KindTitlePresence,
		KindStatistic,
		KindSocialRelationship,
		KindMultiplayerSession,
		KindAchievementProgress,
	}
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDevicePresence:
		return "DEVICE_PRESENCE"
	case KindTitlePresence:
		return "TITLE_PRESENCE"
	case KindStatistic:
		return "STATISTIC"
	case KindSocialRelationship:
		return "SOCIAL_RELATIONSHIP"
	case KindMultiplayerSession:
		return "MULTIPLAYER_SESSION"
	case KindAchievementProgress:
		return "ACHIEVEMENT_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// ParseKind parses a kind name. Matching ignores case and accepts either
// underscores or dashes ("device-presence", "DEVICE_PRESENCE").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, k := range Kinds() {
		if k.String() == norm {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Params are the values substituted into a kind's URI template.
// Which fields are required depends on the kind.
type Params struct {
	// XboxUserID is the decimal XUID of the user whose feed is watched.
	XboxUserID string

	// TitleID is the title for title presence subscriptions.
	TitleID uint32

	// ServiceConfigID is the SCID for statistic and achievement subscriptions.
	ServiceConfigID string

	// StatisticName is the statistic for statistic subscriptions.
	StatisticName string
}
