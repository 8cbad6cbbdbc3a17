package resource

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Resource errors.
var (
	ErrUnknownKind      = errors.New("unknown resource kind")
	ErrMissingParam     = errors.New("missing resource parameter")
	ErrMissingPayload   = errors.New("missing initial payload")
	ErrMalformedPayload = errors.New("malformed payload")
)

// codec is one row of the dispatch table.
type codec struct {
	uri     func(Params) (string, error)
	initial func(Params, gjson.Result) (Event, bool, error)
	delta   func(Params, gjson.Result) (Event, error)
}

var codecs = map[Kind]codec{
	KindDevicePresence: {
		uri:     devicePresenceURI,
		initial: devicePresenceInitial,
		delta:   devicePresenceDelta,
	},
	KindTitlePresence: {
		uri:     titlePresenceURI,
		initial: titlePresenceInitial,
		delta:   titlePresenceDelta,
	},
	KindStatistic: {
		uri:     statisticURI,
		initial: statisticInitial,
		delta:   statisticDelta,
	},
	KindSocialRelationship: {
		uri:     socialURI,
		initial: ignoreInitial,
		delta:   socialDelta,
	},
	KindMultiplayerSession: {
		uri:     multiplayerURI,
		initial: multiplayerInitial,
		delta:   multiplayerDelta,
	},
	KindAchievementProgress: {
		uri:     achievementURI,
		initial: ignoreInitial,
		delta:   achievementDelta,
	},
}

func lookup(k Kind) (codec, error) {
	c, ok := codecs[k]
	if !ok {
		return codec{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return c, nil
}

// URI returns the resource URI for kind k filled from p.
func URI(k Kind, p Params) (string, error) {
	c, err := lookup(k)
	if err != nil {
		return "", err
	}
	return c.uri(p)
}

// DecodeInitial interprets the snapshot delivered with a subscribe ack.
// The bool result is false when the kind produces no initial event for
// this payload; that is not an error.
func DecodeInitial(k Kind, p Params, payload gjson.Result) (Event, bool, error) {
	c, err := lookup(k)
	if err != nil {
		return nil, false, err
	}
	return c.initial(p, payload)
}

// DecodeDelta interprets the payload of an event frame.
func DecodeDelta(k Kind, p Params, payload gjson.Result) (Event, error) {
	c, err := lookup(k)
	if err != nil {
		return nil, err
	}
	return c.delta(p, payload)
}

// isNull reports whether a payload is absent or JSON null.
func isNull(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null
}

func ignoreInitial(Params, gjson.Result) (Event, bool, error) {
	return nil, false, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

func requireXUID(p Params) error {
	if p.XboxUserID == "" {
		return fmt.Errorf("%w: xbox user id", ErrMissingParam)
	}
	return nil
}

// requireObject checks that r is a JSON object.
func requireObject(r gjson.Result, what string) error {
	if isNull(r) {
		return malformed("%s: null", what)
	}
	if !r.IsObject() {
		return malformed("%s: expected object, got %s", what, r.Type)
	}
	return nil
}

// requireString returns the named string field of an object.
func requireString(obj gjson.Result, field string) (string, error) {
	v := obj.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return "", malformed("missing field %q", field)
	}
	if v.Type != gjson.String && v.Type != gjson.Number {
		return "", malformed("field %q: expected string, got %s", field, v.Type)
	}
	s := v.String()
	if s == "" {
		return "", malformed("field %q is empty", field)
	}
	return s, nil
}
