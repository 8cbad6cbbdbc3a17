package resource

import (
	"fmt"

	"github.com/tidwall/gjson"
)

func socialURI(p Params) (string, error) {
	if err := requireXUID(p); err != nil {
		return "", err
	}
	return fmt.Sprintf("http://social.xboxlive.com/users/xuid(%s)/friends", p.XboxUserID), nil
}

func socialDelta(p Params, payload gjson.Result) (Event, error) {
	if err := requireObject(payload, "social relationship"); err != nil {
		return nil, err
	}
	typ, err := requireString(payload, "NotificationType")
	if err != nil {
		return nil, err
	}

	var n SocialNotification
	switch SocialNotification(typ) {
	case SocialNotificationAdded, SocialNotificationChanged, SocialNotificationRemoved:
		n = SocialNotification(typ)
	default:
		return nil, malformed("social relationship: unknown notification type %q", typ)
	}

	xuids := payload.Get("Xuids")
	if !xuids.IsArray() {
		return nil, malformed("social relationship: %q must be an array", "Xuids")
	}
	ev := SocialRelationshipChanged{
		CallerXboxUserID: p.XboxUserID,
		Notification:     n,
		XboxUserIDs:      make([]string, 0, len(xuids.Array())),
	}
	for _, x := range xuids.Array() {
		ev.XboxUserIDs = append(ev.XboxUserIDs, x.String())
	}
	return ev, nil
}
