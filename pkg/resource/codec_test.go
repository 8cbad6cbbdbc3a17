package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestURI(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		params Params
		want   string
	}{
		{
			name:   "device presence",
			kind:   KindDevicePresence,
			params: Params{XboxUserID: "12345"},
			want:   "https://userpresence.xboxlive.com/users/xuid(12345)/devices",
		},
		{
			name:   "title presence",
			kind:   KindTitlePresence,
			params: Params{XboxUserID: "12345", TitleID: 1144039928},
			want:   "https://userpresence.xboxlive.com/users/xuid(12345)/titles/1144039928",
		},
		{
			name:   "statistic",
			kind:   KindStatistic,
			params: Params{XboxUserID: "12345", ServiceConfigID: "scid-1", StatisticName: "Kills"},
			want:   "https://userstats.xboxlive.com/users/xuid(12345)/scids/scid-1/stats/Kills",
		},
		{
			name:   "social",
			kind:   KindSocialRelationship,
			params: Params{XboxUserID: "12345"},
			want:   "http://social.xboxlive.com/users/xuid(12345)/friends",
		},
		{
			name: "multiplayer",
			kind: KindMultiplayerSession,
			want: "https://sessiondirectory.xboxlive.com/connections/",
		},
		{
			name:   "achievements",
			kind:   KindAchievementProgress,
			params: Params{XboxUserID: "12345", ServiceConfigID: "scid-1"},
			want:   "https://achievements.xboxlive.com/users/xuid(12345)/achievements/scid-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URI(tt.kind, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIMissingParams(t *testing.T) {
	cases := []struct {
		kind   Kind
		params Params
	}{
		{KindDevicePresence, Params{}},
		{KindTitlePresence, Params{XboxUserID: "1"}},
		{KindStatistic, Params{XboxUserID: "1", ServiceConfigID: "scid"}},
		{KindStatistic, Params{XboxUserID: "1", StatisticName: "Kills"}},
		{KindSocialRelationship, Params{}},
		{KindAchievementProgress, Params{XboxUserID: "1"}},
	}
	for _, c := range cases {
		_, err := URI(c.kind, c.params)
		assert.ErrorIs(t, err, ErrMissingParam, "kind %s", c.kind)
	}

	_, err := URI(KindUnknown, Params{XboxUserID: "1"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("device-presence")
	require.NoError(t, err)
	assert.Equal(t, KindDevicePresence, got)

	_, err = ParseKind("weather")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

// frameData extracts the payload element of an event frame the same way the
// wire decoder does.
func frameData(raw string) gjson.Result {
	return gjson.Parse(raw).Array()[2]
}

func TestDevicePresenceInitial(t *testing.T) {
	p := Params{XboxUserID: "12345"}

	t.Run("EmptySnapshot", func(t *testing.T) {
		ev, ok, err := DecodeInitial(KindDevicePresence, p, gjson.Parse(`{"titles":[]}`))
		require.NoError(t, err)
		require.True(t, ok)
		snap := ev.(DevicePresenceSnapshot)
		assert.Equal(t, "12345", snap.XboxUserID)
		assert.Empty(t, snap.Devices)
		assert.NotNil(t, snap.Devices)
	})

	t.Run("Devices", func(t *testing.T) {
		raw := `{"xuid":"12345","state":"Online","devices":[{"type":"XboxOne","titles":[{"id":"750323071"}]},{"type":"Toaster"}]}`
		ev, ok, err := DecodeInitial(KindDevicePresence, p, gjson.Parse(raw))
		require.NoError(t, err)
		require.True(t, ok)
		snap := ev.(DevicePresenceSnapshot)
		assert.Equal(t, "Online", snap.State)
		require.Len(t, snap.Devices, 2)
		assert.Equal(t, DeviceTypeXboxOne, snap.Devices[0].Type)
		assert.Equal(t, []uint32{750323071}, snap.Devices[0].TitleIDs)
		assert.Equal(t, DeviceTypeUnknown, snap.Devices[1].Type)
	})

	t.Run("NullIsError", func(t *testing.T) {
		_, ok, err := DecodeInitial(KindDevicePresence, p, gjson.Parse(`null`))
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrMissingPayload)

		_, ok, err = DecodeInitial(KindDevicePresence, p, gjson.Result{})
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrMissingPayload)
	})

	t.Run("DevicesNotArray", func(t *testing.T) {
		_, _, err := DecodeInitial(KindDevicePresence, p, gjson.Parse(`{"devices":"XboxOne"}`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestDevicePresenceDelta(t *testing.T) {
	p := Params{XboxUserID: "12345"}

	ev, err := DecodeDelta(KindDevicePresence, p, frameData(`[3,7,"XboxOne:true"]`))
	require.NoError(t, err)
	assert.Equal(t, DevicePresenceChanged{
		XboxUserID:     "12345",
		DeviceType:     DeviceTypeXboxOne,
		IsUserLoggedOn: true,
	}, ev)

	ev, err = DecodeDelta(KindDevicePresence, p, frameData(`[3,7,"iOS:False"]`))
	require.NoError(t, err)
	assert.Equal(t, DeviceTypeIOS, ev.(DevicePresenceChanged).DeviceType)
	assert.False(t, ev.(DevicePresenceChanged).IsUserLoggedOn)

	bad := []string{
		`[3,7,"BadFrame"]`,
		`[3,7,"XboxOne:true:extra"]`,
		`[3,7,":true"]`,
		`[3,7,"XboxOne:maybe"]`,
		`[3,7,{"device":"XboxOne"}]`,
		`[3,7,null]`,
	}
	for _, raw := range bad {
		_, err := DecodeDelta(KindDevicePresence, p, frameData(raw))
		assert.ErrorIs(t, err, ErrMalformedPayload, raw)
	}
}

func TestTitlePresence(t *testing.T) {
	p := Params{XboxUserID: "12345", TitleID: 42}

	t.Run("NullInitialIsNoEvent", func(t *testing.T) {
		ev, ok, err := DecodeInitial(KindTitlePresence, p, gjson.Parse(`null`))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, ev)
	})

	t.Run("InitialStarted", func(t *testing.T) {
		ev, ok, err := DecodeInitial(KindTitlePresence, p, gjson.Parse(`{"devices":[{"type":"XboxOne","titles":[{"id":"42"}]}]}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, TitlePresenceStarted, ev.(TitlePresenceChanged).State)
	})

	t.Run("InitialEnded", func(t *testing.T) {
		ev, ok, err := DecodeInitial(KindTitlePresence, p, gjson.Parse(`{"devices":[]}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, TitlePresenceEnded, ev.(TitlePresenceChanged).State)
	})

	t.Run("Delta", func(t *testing.T) {
		ev, err := DecodeDelta(KindTitlePresence, p, frameData(`[3,1,"Started"]`))
		require.NoError(t, err)
		assert.Equal(t, TitlePresenceChanged{XboxUserID: "12345", TitleID: 42, State: TitlePresenceStarted}, ev)

		ev, err = DecodeDelta(KindTitlePresence, p, frameData(`[3,1,"ended"]`))
		require.NoError(t, err)
		assert.Equal(t, TitlePresenceEnded, ev.(TitlePresenceChanged).State)

		_, err = DecodeDelta(KindTitlePresence, p, frameData(`[3,1,"paused"]`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestStatistic(t *testing.T) {
	p := Params{XboxUserID: "12345", ServiceConfigID: "scid-1", StatisticName: "Kills"}

	ev, ok, err := DecodeInitial(KindStatistic, p, gjson.Parse(`null`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, ev)

	ev, ok, err = DecodeInitial(KindStatistic, p, gjson.Parse(`{"name":"Kills","type":"Integer","value":"10"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatisticChanged{
		XboxUserID:      "12345",
		ServiceConfigID: "scid-1",
		Name:            "Kills",
		Type:            "Integer",
		Value:           "10",
	}, ev)

	ev, err = DecodeDelta(KindStatistic, p, frameData(`[3,9,{"name":"Kills","type":"Integer","value":11}]`))
	require.NoError(t, err)
	assert.Equal(t, "11", ev.(StatisticChanged).Value)

	_, err = DecodeDelta(KindStatistic, p, frameData(`[3,9,{"type":"Integer","value":11}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeDelta(KindStatistic, p, frameData(`[3,9,{"name":"Kills"}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, _, err = DecodeInitial(KindStatistic, p, gjson.Parse(`"Kills:10"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSocialRelationship(t *testing.T) {
	p := Params{XboxUserID: "12345"}

	_, ok, err := DecodeInitial(KindSocialRelationship, p, gjson.Parse(`{"anything":true}`))
	require.NoError(t, err)
	assert.False(t, ok)

	ev, err := DecodeDelta(KindSocialRelationship, p, frameData(`[3,2,{"NotificationType":"Added","Xuids":["1","2"]}]`))
	require.NoError(t, err)
	assert.Equal(t, SocialRelationshipChanged{
		CallerXboxUserID: "12345",
		Notification:     SocialNotificationAdded,
		XboxUserIDs:      []string{"1", "2"},
	}, ev)

	_, err = DecodeDelta(KindSocialRelationship, p, frameData(`[3,2,{"NotificationType":"Blocked","Xuids":[]}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeDelta(KindSocialRelationship, p, frameData(`[3,2,{"NotificationType":"Added"}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestMultiplayerSession(t *testing.T) {
	ev, ok, err := DecodeInitial(KindMultiplayerSession, Params{}, gjson.Parse(`{"ConnectionId":"conn-1"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MultiplayerConnectionEstablished{ConnectionID: "conn-1"}, ev)

	_, _, err = DecodeInitial(KindMultiplayerSession, Params{}, gjson.Parse(`null`))
	assert.True(t, errors.Is(err, ErrMissingPayload))

	_, _, err = DecodeInitial(KindMultiplayerSession, Params{}, gjson.Parse(`{}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	raw := `[3,5,{"shoulderTaps":[{"resource":"scid~lobby~abc","changeNumber":12,"branch":"b-1"}]}]`
	ev, err = DecodeDelta(KindMultiplayerSession, Params{}, frameData(raw))
	require.NoError(t, err)
	changed := ev.(MultiplayerSessionChanged)
	require.Len(t, changed.Taps, 1)
	assert.Equal(t, SessionReference{ServiceConfigID: "scid", TemplateName: "lobby", SessionName: "abc"}, changed.Taps[0].Session)
	assert.Equal(t, uint64(12), changed.Taps[0].ChangeNumber)
	assert.Equal(t, "b-1", changed.Taps[0].Branch)

	_, err = DecodeDelta(KindMultiplayerSession, Params{}, frameData(`[3,5,{"shoulderTaps":[{"resource":"scid~lobby"}]}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestAchievementProgress(t *testing.T) {
	p := Params{XboxUserID: "12345", ServiceConfigID: "scid-1"}

	raw := `[3,4,{"serviceConfigId":"scid-2","progression":[{"id":"1","progressState":"Achieved"},{"id":"2","progressState":"InProgress"}]}]`
	ev, err := DecodeDelta(KindAchievementProgress, p, frameData(raw))
	require.NoError(t, err)
	changed := ev.(AchievementProgressChanged)
	assert.Equal(t, "scid-2", changed.ServiceConfigID)
	assert.Equal(t, []AchievementProgress{
		{ID: "1", ProgressState: "Achieved"},
		{ID: "2", ProgressState: "InProgress"},
	}, changed.Progress)

	_, err = DecodeDelta(KindAchievementProgress, p, frameData(`[3,4,{"progression":{}}]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

// Decoding the same delta twice yields two equal, independent values.
func TestDeltaIsPure(t *testing.T) {
	p := Params{XboxUserID: "12345"}
	payload := frameData(`[3,7,"XboxOne:true"]`)

	a, err := DecodeDelta(KindDevicePresence, p, payload)
	require.NoError(t, err)
	b, err := DecodeDelta(KindDevicePresence, p, payload)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
