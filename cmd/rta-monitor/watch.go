package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xbl-rta/rta-go/pkg/config"
)

var errNothingToWatch = errors.New("nothing to watch: pass --watchlist or --kind with --xuid")

func newWatchCommand(v *viper.Viper, load loader) *cobra.Command {
	var extra config.WatchEntry

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to resources and print their events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			entries, err := watchEntries(cfg, extra)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.Start(ctx); err != nil {
				return err
			}
			for _, e := range entries {
				kind, params, _ := e.Resolve()
				sub, err := a.Subscribe(ctx, kind, params)
				if err != nil {
					a.logger.Error("subscribe failed", "kind", kind, "xuid", e.XUID, "error", err)
					continue
				}
				a.logger.Info("watching", "uri", sub.URI())
			}

			<-ctx.Done()
			a.logger.Info("shutting down")
			return nil
		},
	}

	f := cmd.Flags()
	f.String("watchlist", "", "YAML file of resources to subscribe")
	_ = v.BindPFlag("watchlist", f.Lookup("watchlist"))
	f.StringVar(&extra.Kind, "kind", "", "Resource kind to watch in addition to the watchlist")
	f.StringVar(&extra.XUID, "xuid", "", "Xbox user id for --kind")
	f.Uint32Var(&extra.TitleID, "title-id", 0, "Title id for title-presence")
	f.StringVar(&extra.SCID, "scid", "", "Service configuration id for statistic and achievement-progress")
	f.StringVar(&extra.Stat, "stat", "", "Statistic name for statistic")
	return cmd
}

// watchEntries merges the configured watchlist with the entry given by
// flags.
func watchEntries(cfg *config.Config, extra config.WatchEntry) ([]config.WatchEntry, error) {
	var entries []config.WatchEntry
	if cfg.Watchlist != "" {
		wl, err := config.LoadWatchlist(cfg.Watchlist)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wl.Subscriptions...)
	}
	if extra.Kind != "" || extra.XUID != "" {
		if _, _, err := extra.Resolve(); err != nil {
			return nil, fmt.Errorf("--kind %q: %w", extra.Kind, err)
		}
		entries = append(entries, extra)
	}
	if len(entries) == 0 {
		return nil, errNothingToWatch
	}
	return entries, nil
}
