package resource

import (
	"strings"

	"github.com/tidwall/gjson"
)

// multiplayerURI takes no parameters; the service keys taps by connection id.
func multiplayerURI(Params) (string, error) {
	return "https://sessiondirectory.xboxlive.com/connections/", nil
}

// multiplayerInitial requires the connection id. Without it the client can
// never be shoulder-tapped, so a null snapshot is an error.
func multiplayerInitial(_ Params, payload gjson.Result) (Event, bool, error) {
	if isNull(payload) {
		return nil, false, ErrMissingPayload
	}
	if err := requireObject(payload, "multiplayer connection"); err != nil {
		return nil, false, err
	}
	id, err := requireString(payload, "ConnectionId")
	if err != nil {
		return nil, false, err
	}
	return MultiplayerConnectionEstablished{ConnectionID: id}, true, nil
}

func multiplayerDelta(_ Params, payload gjson.Result) (Event, error) {
	if err := requireObject(payload, "multiplayer session"); err != nil {
		return nil, err
	}
	taps := payload.Get("shoulderTaps")
	if !taps.IsArray() {
		return nil, malformed("multiplayer session: %q must be an array", "shoulderTaps")
	}

	ev := MultiplayerSessionChanged{}
	for _, t := range taps.Array() {
		res, err := requireString(t, "resource")
		if err != nil {
			return nil, err
		}
		ref, err := parseSessionReference(res)
		if err != nil {
			return nil, err
		}
		ev.Taps = append(ev.Taps, ShoulderTap{
			Session:      ref,
			ChangeNumber: t.Get("changeNumber").Uint(),
			Branch:       t.Get("branch").String(),
		})
	}
	return ev, nil
}

// parseSessionReference splits "<scid>~<template>~<name>".
func parseSessionReference(s string) (SessionReference, error) {
	parts := strings.Split(s, "~")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return SessionReference{}, malformed("session reference %q: expected <scid>~<template>~<name>", s)
	}
	return SessionReference{
		ServiceConfigID: parts[0],
		TemplateName:    parts[1],
		SessionName:     parts[2],
	}, nil
}
