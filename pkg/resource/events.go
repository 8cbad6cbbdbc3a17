package resource

// Event is the typed value handed to a subscription's event handler.
type Event interface {
	// Kind returns the resource kind that produced the event.
	Kind() Kind
}

// DeviceType is the platform a user is signed in on.
type DeviceType string

// Device types reported by the presence service.
const (
	DeviceTypeUnknown        DeviceType = "Unknown"
	DeviceTypeXboxOne        DeviceType = "XboxOne"
	DeviceTypeScarlett       DeviceType = "Scarlett"
	DeviceTypeXbox360        DeviceType = "Xbox360"
	DeviceTypeWindowsOneCore DeviceType = "WindowsOneCore"
	DeviceTypeWin32          DeviceType = "Win32"
	DeviceTypeIOS            DeviceType = "iOS"
	DeviceTypeAndroid        DeviceType = "Android"
	DeviceTypeNintendo       DeviceType = "Nintendo"
	DeviceTypeWeb            DeviceType = "Web"
)

var knownDeviceTypes = []DeviceType{
	DeviceTypeXboxOne,
	DeviceTypeScarlett,
	DeviceTypeXbox360,
	DeviceTypeWindowsOneCore,
	DeviceTypeWin32,
	DeviceTypeIOS,
	DeviceTypeAndroid,
	DeviceTypeNintendo,
	DeviceTypeWeb,
}

// DeviceRecord is one device entry of a presence snapshot.
type DeviceRecord struct {
	Type     DeviceType
	TitleIDs []uint32
}

// DevicePresenceSnapshot is delivered once when a device presence
// subscription is acknowledged. Devices may be empty.
type DevicePresenceSnapshot struct {
	XboxUserID string
	State      string
	Devices    []DeviceRecord
}

// Kind implements Event.
func (DevicePresenceSnapshot) Kind() Kind { return KindDevicePresence }

// DevicePresenceChanged reports a user signing in or out on a device.
type DevicePresenceChanged struct {
	XboxUserID     string
	DeviceType     DeviceType
	IsUserLoggedOn bool
}

// Kind implements Event.
func (DevicePresenceChanged) Kind() Kind { return KindDevicePresence }

// TitlePresenceState says whether a title is running for the user.
type TitlePresenceState uint8

const (
	TitlePresenceUnknown TitlePresenceState = iota
	TitlePresenceStarted
	TitlePresenceEnded
)

// String returns the state name.
func (s TitlePresenceState) String() string {
	switch s {
	case TitlePresenceStarted:
		return "STARTED"
	case TitlePresenceEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// TitlePresenceChanged reports a title starting or ending.
type TitlePresenceChanged struct {
	XboxUserID string
	TitleID    uint32
	State      TitlePresenceState
}

// Kind implements Event.
func (TitlePresenceChanged) Kind() Kind { return KindTitlePresence }

// StatisticChanged carries the current value of a statistic.
// Value is kept as the service's string rendering; Type names its data type.
type StatisticChanged struct {
	XboxUserID      string
	ServiceConfigID string
	Name            string
	Type            string
	Value           string
}

// Kind implements Event.
func (StatisticChanged) Kind() Kind { return KindStatistic }

// SocialNotification is the kind of friends-list change.
type SocialNotification string

const (
	SocialNotificationAdded   SocialNotification = "Added"
	SocialNotificationChanged SocialNotification = "Changed"
	SocialNotificationRemoved SocialNotification = "Removed"
)

// SocialRelationshipChanged lists the users whose relationship changed.
type SocialRelationshipChanged struct {
	CallerXboxUserID string
	Notification     SocialNotification
	XboxUserIDs      []string
}

// Kind implements Event.
func (SocialRelationshipChanged) Kind() Kind { return KindSocialRelationship }

// MultiplayerConnectionEstablished carries the connection id that must be
// attached to multiplayer session documents to receive shoulder taps.
type MultiplayerConnectionEstablished struct {
	ConnectionID string
}

// Kind implements Event.
func (MultiplayerConnectionEstablished) Kind() Kind { return KindMultiplayerSession }

// SessionReference names a multiplayer session document.
type SessionReference struct {
	ServiceConfigID string
	TemplateName    string
	SessionName     string
}

// ShoulderTap tells the client a session document changed.
type ShoulderTap struct {
	Session      SessionReference
	ChangeNumber uint64
	Branch       string
}

// MultiplayerSessionChanged carries the shoulder taps of one event frame.
type MultiplayerSessionChanged struct {
	Taps []ShoulderTap
}

// Kind implements Event.
func (MultiplayerSessionChanged) Kind() Kind { return KindMultiplayerSession }

// AchievementProgress is the progression of one achievement.
type AchievementProgress struct {
	ID            string
	ProgressState string
}

// AchievementProgressChanged lists progressed achievements for a title.
type AchievementProgressChanged struct {
	XboxUserID      string
	ServiceConfigID string
	Progress        []AchievementProgress
}

// Kind implements Event.
func (AchievementProgressChanged) Kind() Kind { return KindAchievementProgress }
