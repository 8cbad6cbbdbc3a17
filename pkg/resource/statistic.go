package resource

import (
	"fmt"

	"github.com/tidwall/gjson"
)

func statisticURI(p Params) (string, error) {
	if err := requireXUID(p); err != nil {
		return "", err
	}
	if p.ServiceConfigID == "" {
		return "", fmt.Errorf("%w: service config id", ErrMissingParam)
	}
	if p.StatisticName == "" {
		return "", fmt.Errorf("%w: statistic name", ErrMissingParam)
	}
	return fmt.Sprintf("https://userstats.xboxlive.com/users/xuid(%s)/scids/%s/stats/%s",
		p.XboxUserID, p.ServiceConfigID, p.StatisticName), nil
}

// statisticInitial treats a null snapshot as "statistic not set yet".
func statisticInitial(p Params, payload gjson.Result) (Event, bool, error) {
	if isNull(payload) {
		return nil, false, nil
	}
	ev, err := parseStatistic(p, payload)
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

func statisticDelta(p Params, payload gjson.Result) (Event, error) {
	return parseStatistic(p, payload)
}

func parseStatistic(p Params, payload gjson.Result) (Event, error) {
	if err := requireObject(payload, "statistic"); err != nil {
		return nil, err
	}
	name, err := requireString(payload, "name")
	if err != nil {
		return nil, err
	}
	value := payload.Get("value")
	if !value.Exists() {
		return nil, malformed("statistic %q: missing field %q", name, "value")
	}

	return StatisticChanged{
		XboxUserID:      p.XboxUserID,
		ServiceConfigID: p.ServiceConfigID,
		Name:            name,
		Type:            payload.Get("type").String(),
		Value:           value.String(),
	}, nil
}
