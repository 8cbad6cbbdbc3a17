package resource

import (
	"fmt"

	"github.com/tidwall/gjson"
)

func achievementURI(p Params) (string, error) {
	if err := requireXUID(p); err != nil {
		return "", err
	}
	if p.ServiceConfigID == "" {
		return "", fmt.Errorf("%w: service config id", ErrMissingParam)
	}
	return fmt.Sprintf("https://achievements.xboxlive.com/users/xuid(%s)/achievements/%s",
		p.XboxUserID, p.ServiceConfigID), nil
}

func achievementDelta(p Params, payload gjson.Result) (Event, error) {
	if err := requireObject(payload, "achievement progress"); err != nil {
		return nil, err
	}
	progression := payload.Get("progression")
	if !progression.IsArray() {
		return nil, malformed("achievement progress: %q must be an array", "progression")
	}

	ev := AchievementProgressChanged{
		XboxUserID:      p.XboxUserID,
		ServiceConfigID: p.ServiceConfigID,
	}
	if scid := payload.Get("serviceConfigId").String(); scid != "" {
		ev.ServiceConfigID = scid
	}
	for _, a := range progression.Array() {
		id, err := requireString(a, "id")
		if err != nil {
			return nil, err
		}
		ev.Progress = append(ev.Progress, AchievementProgress{
			ID:            id,
			ProgressState: a.Get("progressState").String(),
		})
	}
	return ev, nil
}
