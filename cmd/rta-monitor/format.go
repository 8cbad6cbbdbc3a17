package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/subscription"
)

// printer writes subscription output lines. now is replaceable for tests.
type printer struct {
	w   io.Writer
	now func() time.Time
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, now: time.Now}
}

func (p *printer) stamp() string {
	return p.now().Format("15:04:05.000")
}

// Event prints one decoded event.
func (p *printer) Event(ev resource.Event) {
	fmt.Fprintf(p.w, "%s [EVENT] %s %s\n", p.stamp(), ev.Kind(), describeEvent(ev))
}

// Error prints one subscription error.
func (p *printer) Error(ev subscription.ErrorEvent) {
	fmt.Fprintf(p.w, "%s [ERROR] %s %s: %v\n", p.stamp(), ev.Code, ev.Subscription.URI(), ev.Err)
}

// Subscription prints the state line of sub.
func (p *printer) Subscription(i int, sub *subscription.Subscription) {
	state, id := sub.Snapshot()
	if id != 0 {
		fmt.Fprintf(p.w, "  %2d  %-20s %-18s id=%-6d %s\n", i, sub.Kind(), state, id, sub.URI())
		return
	}
	fmt.Fprintf(p.w, "  %2d  %-20s %-18s %-9s %s\n", i, sub.Kind(), state, "", sub.URI())
}

func describeEvent(ev resource.Event) string {
	switch e := ev.(type) {
	case resource.DevicePresenceSnapshot:
		if len(e.Devices) == 0 {
			return fmt.Sprintf("xuid=%s state=%s no devices", e.XboxUserID, e.State)
		}
		devices := make([]string, 0, len(e.Devices))
		for _, d := range e.Devices {
			devices = append(devices, fmt.Sprintf("%s%v", d.Type, d.TitleIDs))
		}
		return fmt.Sprintf("xuid=%s state=%s devices=%s", e.XboxUserID, e.State, strings.Join(devices, ","))
	case resource.DevicePresenceChanged:
		action := "signed out of"
		if e.IsUserLoggedOn {
			action = "signed in on"
		}
		return fmt.Sprintf("xuid=%s %s %s", e.XboxUserID, action, e.DeviceType)
	case resource.TitlePresenceChanged:
		return fmt.Sprintf("xuid=%s title=%d %s", e.XboxUserID, e.TitleID, e.State)
	case resource.StatisticChanged:
		return fmt.Sprintf("xuid=%s %s=%s (%s)", e.XboxUserID, e.Name, e.Value, e.Type)
	case resource.SocialRelationshipChanged:
		return fmt.Sprintf("xuid=%s %s %s", e.CallerXboxUserID, e.Notification, strings.Join(e.XboxUserIDs, ","))
	case resource.MultiplayerConnectionEstablished:
		return fmt.Sprintf("connection=%s", e.ConnectionID)
	case resource.MultiplayerSessionChanged:
		taps := make([]string, 0, len(e.Taps))
		for _, t := range e.Taps {
			taps = append(taps, fmt.Sprintf("%s/%s/%s#%d", t.Session.ServiceConfigID,
				t.Session.TemplateName, t.Session.SessionName, t.ChangeNumber))
		}
		return "taps=" + strings.Join(taps, ",")
	case resource.AchievementProgressChanged:
		progress := make([]string, 0, len(e.Progress))
		for _, a := range e.Progress {
			progress = append(progress, a.ID+":"+a.ProgressState)
		}
		return fmt.Sprintf("xuid=%s scid=%s %s", e.XboxUserID, e.ServiceConfigID, strings.Join(progress, ","))
	default:
		return fmt.Sprintf("%+v", ev)
	}
}
