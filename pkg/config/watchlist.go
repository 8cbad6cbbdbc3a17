package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xbl-rta/rta-go/pkg/resource"
)

// ErrEmptyWatchlist is returned when a watchlist names no resources.
var ErrEmptyWatchlist = errors.New("watchlist has no entries")

// Watchlist is the set of resources to subscribe at startup.
//
//	subscriptions:
//	  - kind: device-presence
//	    xuid: "2533274790395904"
//	  - kind: statistic
//	    xuid: "2533274790395904"
//	    scid: "c4060100-4951-4a51-a630-dce26c1b8e8b"
//	    stat: "MinutesPlayed"
type Watchlist struct {
	Subscriptions []WatchEntry `yaml:"subscriptions"`
}

// WatchEntry is one watchlist item.
type WatchEntry struct {
	Kind    string `yaml:"kind"`
	XUID    string `yaml:"xuid"`
	TitleID uint32 `yaml:"title_id,omitempty"`
	SCID    string `yaml:"scid,omitempty"`
	Stat    string `yaml:"stat,omitempty"`
}

// Resolve parses the kind and checks that the URI template can be filled.
func (e WatchEntry) Resolve() (resource.Kind, resource.Params, error) {
	kind, err := resource.ParseKind(e.Kind)
	if err != nil {
		return resource.KindUnknown, resource.Params{}, err
	}
	params := resource.Params{
		XboxUserID:      e.XUID,
		TitleID:         e.TitleID,
		ServiceConfigID: e.SCID,
		StatisticName:   e.Stat,
	}
	if _, err := resource.URI(kind, params); err != nil {
		return resource.KindUnknown, resource.Params{}, err
	}
	return kind, params, nil
}

// ParseWatchlist parses and validates a watchlist from YAML bytes.
func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parsing watchlist: %w", err)
	}
	if len(wl.Subscriptions) == 0 {
		return nil, ErrEmptyWatchlist
	}
	for i, e := range wl.Subscriptions {
		if _, _, err := e.Resolve(); err != nil {
			return nil, fmt.Errorf("watchlist entry %d: %w", i, err)
		}
	}
	return &wl, nil
}

// LoadWatchlist reads and parses a watchlist file.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseWatchlist(data)
}
