// Command rta-monitor subscribes to Xbox Live real-time activity resources
// and prints their events.
//
// Usage:
//
//	rta-monitor watch [flags]
//	rta-monitor interactive [flags]
//
// Settings come from an optional YAML file (--config), RTA_* environment
// variables and flags, in increasing priority. RTA_AUTH_TOKEN and
// RTA_AUTH_USER_HASH, or RTA_AUTH_HEADER, supply credentials.
//
// Examples:
//
//	# Watch the resources listed in a watchlist
//	rta-monitor watch --config rta.yaml --watchlist friends.yaml
//
//	# Watch one user's devices and capture the protocol
//	rta-monitor watch --kind device-presence --xuid 2533274790395904 --protocol-log session.rlog
//
//	# Subscribe by hand
//	rta-monitor interactive --metrics-addr :9090
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xbl-rta/rta-go/pkg/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// loader loads the effective configuration once flags are parsed.
type loader func() (*config.Config, error)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configPath string

	root := &cobra.Command{
		Use:          "rta-monitor",
		Short:        "Xbox Live real-time activity monitor",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Configuration file (YAML)")
	pf.String("url", "", "RTA websocket endpoint")
	pf.String("token", "", "XSTS token")
	pf.String("user-hash", "", "User hash of the XSTS token")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text, json")
	pf.String("protocol-log", "", "Write a protocol capture to this file (.rlog)")
	pf.String("metrics-addr", "", "Serve prometheus metrics on this address")

	for key, flag := range map[string]string{
		"endpoint.url":         "url",
		"auth.token":           "token",
		"auth.user_hash":       "user-hash",
		"logging.level":        "log-level",
		"logging.format":       "log-format",
		"logging.protocol_log": "protocol-log",
		"metrics.addr":         "metrics-addr",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	load := func() (*config.Config, error) {
		return config.LoadWith(v, configPath)
	}
	root.AddCommand(newWatchCommand(v, load), newInteractiveCommand(load))
	return root
}
