package resource

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const presenceHost = "https://userpresence.xboxlive.com"

func devicePresenceURI(p Params) (string, error) {
	if err := requireXUID(p); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/users/xuid(%s)/devices", presenceHost, p.XboxUserID), nil
}

func titlePresenceURI(p Params) (string, error) {
	if err := requireXUID(p); err != nil {
		return "", err
	}
	if p.TitleID == 0 {
		return "", fmt.Errorf("%w: title id", ErrMissingParam)
	}
	return fmt.Sprintf("%s/users/xuid(%s)/titles/%d", presenceHost, p.XboxUserID, p.TitleID), nil
}

// ParseDeviceType maps a service device type name to a DeviceType.
// Unrecognised names map to DeviceTypeUnknown.
func ParseDeviceType(s string) DeviceType {
	for _, t := range knownDeviceTypes {
		if strings.EqualFold(string(t), s) {
			return t
		}
	}
	return DeviceTypeUnknown
}

// devicePresenceInitial requires a presence record. A null snapshot means the
// service could not resolve the user, which is reported as an error.
func devicePresenceInitial(p Params, payload gjson.Result) (Event, bool, error) {
	if isNull(payload) {
		return nil, false, fmt.Errorf("%w: device presence", ErrMissingPayload)
	}
	if !payload.IsObject() {
		return nil, false, malformed("device presence snapshot: expected object, got %s", payload.Type)
	}

	snap := DevicePresenceSnapshot{
		XboxUserID: p.XboxUserID,
		State:      payload.Get("state").String(),
		Devices:    []DeviceRecord{},
	}
	if xuid := payload.Get("xuid").String(); xuid != "" {
		snap.XboxUserID = xuid
	}

	devices := payload.Get("devices")
	if devices.Exists() && devices.Type != gjson.Null {
		if !devices.IsArray() {
			return nil, false, malformed("devices: expected array, got %s", devices.Type)
		}
		for _, d := range devices.Array() {
			typ, err := requireString(d, "type")
			if err != nil {
				return nil, false, err
			}
			rec := DeviceRecord{Type: ParseDeviceType(typ)}
			for _, t := range d.Get("titles").Array() {
				rec.TitleIDs = append(rec.TitleIDs, uint32(t.Get("id").Uint()))
			}
			snap.Devices = append(snap.Devices, rec)
		}
	}
	return snap, true, nil
}

// devicePresenceDelta parses "<deviceType>:<bool>".
func devicePresenceDelta(p Params, payload gjson.Result) (Event, error) {
	if payload.Type != gjson.String {
		return nil, malformed("device presence: expected string, got %s", payload.Type)
	}
	parts := strings.Split(payload.String(), ":")
	if len(parts) != 2 {
		return nil, malformed("device presence %q: expected <deviceType>:<bool>", payload.String())
	}
	if parts[0] == "" {
		return nil, malformed("device presence %q: empty device type", payload.String())
	}

	var loggedOn bool
	switch {
	case strings.EqualFold(parts[1], "true"):
		loggedOn = true
	case strings.EqualFold(parts[1], "false"):
		loggedOn = false
	default:
		return nil, malformed("device presence %q: invalid flag %q", payload.String(), parts[1])
	}

	return DevicePresenceChanged{
		XboxUserID:     p.XboxUserID,
		DeviceType:     ParseDeviceType(parts[0]),
		IsUserLoggedOn: loggedOn,
	}, nil
}

// titlePresenceInitial treats a null snapshot as "no data". A presence
// record reports Started when the watched title is listed.
func titlePresenceInitial(p Params, payload gjson.Result) (Event, bool, error) {
	if isNull(payload) {
		return nil, false, nil
	}
	if err := requireObject(payload, "title presence snapshot"); err != nil {
		return nil, false, err
	}

	state := TitlePresenceEnded
	for _, d := range payload.Get("devices").Array() {
		for _, t := range d.Get("titles").Array() {
			if uint32(t.Get("id").Uint()) == p.TitleID {
				state = TitlePresenceStarted
			}
		}
	}
	for _, t := range payload.Get("titles").Array() {
		if uint32(t.Get("id").Uint()) == p.TitleID {
			state = TitlePresenceStarted
		}
	}

	return TitlePresenceChanged{
		XboxUserID: p.XboxUserID,
		TitleID:    p.TitleID,
		State:      state,
	}, true, nil
}

func titlePresenceDelta(p Params, payload gjson.Result) (Event, error) {
	if payload.Type != gjson.String {
		return nil, malformed("title presence: expected string, got %s", payload.Type)
	}

	var state TitlePresenceState
	switch {
	case strings.EqualFold(payload.String(), "started"):
		state = TitlePresenceStarted
	case strings.EqualFold(payload.String(), "ended"):
		state = TitlePresenceEnded
	default:
		return nil, malformed("title presence: unknown state %q", payload.String())
	}

	return TitlePresenceChanged{
		XboxUserID: p.XboxUserID,
		TitleID:    p.TitleID,
		State:      state,
	}, nil
}
