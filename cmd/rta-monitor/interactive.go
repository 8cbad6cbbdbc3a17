package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/subscription"
)

func newInteractiveCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Subscribe and unsubscribe from a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "rta> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    completer(),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			// Logs and events go through readline so they do not garble the prompt.
			a, err := newApp(cfg, rl.Stdout(), rl.Stderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := a.Start(ctx); err != nil {
				return err
			}

			c := &console{app: a, out: rl.Stdout()}
			c.printHelp()
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if err != nil {
					fmt.Fprintln(c.out, "Exiting...")
					return nil
				}
				if c.execute(ctx, line) {
					return nil
				}
			}
		},
	}
}

func completer() *readline.PrefixCompleter {
	kinds := make([]readline.PrefixCompleterInterface, 0, len(resource.Kinds()))
	for _, k := range resource.Kinds() {
		kinds = append(kinds, readline.PcItem(kindFlagName(k)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("sub", kinds...),
		readline.PcItem("unsub"),
		readline.PcItem("list"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// kindFlagName is the lower-case dashed form of a kind, as typed at the
// prompt and in watchlists.
func kindFlagName(k resource.Kind) string {
	return strings.ReplaceAll(strings.ToLower(k.String()), "_", "-")
}

// console executes prompt commands against an app.
type console struct {
	app *app
	out io.Writer
}

// execute runs one command line and reports whether the session should end.
func (c *console) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "sub", "s":
		c.cmdSubscribe(ctx, args)
	case "unsub", "u":
		c.cmdUnsubscribe(ctx, args)
	case "list", "ls":
		c.cmdList()
	case "status":
		c.cmdStatus()
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `
RTA Monitor Commands:
  sub <kind> <xuid> [args]  - Subscribe to a resource
        device-presence <xuid>
        title-presence <xuid> <title-id>
        statistic <xuid> <scid> <stat>
        social-relationship <xuid>
        multiplayer-session
        achievement-progress <xuid> <scid>
  unsub <n|uri>             - Unsubscribe (n as shown by list)
  list                      - List subscriptions
  status                    - Show connection status
  help                      - Show this help
  quit                      - Exit`)
}

// parseSubArgs turns "kind xuid [args]" into a resource.
func parseSubArgs(args []string) (resource.Kind, resource.Params, error) {
	if len(args) == 0 {
		return resource.KindUnknown, resource.Params{}, errors.New("usage: sub <kind> <xuid> [args]")
	}
	kind, err := resource.ParseKind(args[0])
	if err != nil {
		return resource.KindUnknown, resource.Params{}, err
	}
	// Multiplayer taps belong to the connection, not to a user.
	if kind == resource.KindMultiplayerSession {
		if len(args) != 1 {
			return kind, resource.Params{}, errors.New("usage: sub multiplayer-session")
		}
		return kind, resource.Params{}, nil
	}
	if len(args) < 2 {
		return kind, resource.Params{}, errors.New("usage: sub <kind> <xuid> [args]")
	}
	params := resource.Params{XboxUserID: args[1]}
	rest := args[2:]

	switch kind {
	case resource.KindTitlePresence:
		if len(rest) != 1 {
			return kind, params, errors.New("usage: sub title-presence <xuid> <title-id>")
		}
		id, err := strconv.ParseUint(rest[0], 10, 32)
		if err != nil {
			return kind, params, fmt.Errorf("invalid title id %q", rest[0])
		}
		params.TitleID = uint32(id)
	case resource.KindStatistic:
		if len(rest) != 2 {
			return kind, params, errors.New("usage: sub statistic <xuid> <scid> <stat>")
		}
		params.ServiceConfigID, params.StatisticName = rest[0], rest[1]
	case resource.KindAchievementProgress:
		if len(rest) != 1 {
			return kind, params, errors.New("usage: sub achievement-progress <xuid> <scid>")
		}
		params.ServiceConfigID = rest[0]
	default:
		if len(rest) != 0 {
			return kind, params, fmt.Errorf("%s takes only a xuid", kindFlagName(kind))
		}
	}
	return kind, params, nil
}

func (c *console) cmdSubscribe(ctx context.Context, args []string) {
	kind, params, err := parseSubArgs(args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	sub, err := c.app.Subscribe(ctx, kind, params)
	if err != nil {
		fmt.Fprintf(c.out, "Subscribe failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Subscribing %s (%s)\n", sub.URI(), sub.State())
}

// lookup resolves a list index (1-based) or a resource URI.
func (c *console) lookup(arg string) (*subscription.Subscription, bool) {
	subs := c.app.client.Subscriptions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(subs) {
			return nil, false
		}
		return subs[n-1], true
	}
	return c.app.client.Connection().Lookup(arg)
}

func (c *console) cmdUnsubscribe(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: unsub <n|uri>")
		return
	}
	sub, ok := c.lookup(args[0])
	if !ok {
		fmt.Fprintf(c.out, "No subscription %s\n", args[0])
		return
	}
	if err := c.app.client.Unsubscribe(ctx, sub); err != nil {
		fmt.Fprintf(c.out, "Unsubscribe failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Unsubscribing %s (%s)\n", sub.URI(), sub.State())
}

func (c *console) cmdList() {
	subs := c.app.client.Subscriptions()
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}
	fmt.Fprintf(c.out, "\nSubscriptions (%d):\n", len(subs))
	for i, sub := range subs {
		c.app.out.Subscription(i+1, sub)
	}
}

func (c *console) cmdStatus() {
	counts := make(map[subscription.State]int)
	for _, sub := range c.app.client.Subscriptions() {
		counts[sub.State()]++
	}

	fmt.Fprintf(c.out, "Endpoint:   %s\n", c.app.cfg.Endpoint.URL)
	fmt.Fprintf(c.out, "Connection: %s\n", c.app.client.State())
	fmt.Fprintf(c.out, "Subscribed: %d  Pending: %d  Waiting: %d  Failed: %d\n",
		counts[subscription.StateSubscribed],
		counts[subscription.StatePendingSubscribe]+counts[subscription.StatePendingUnsubscribe],
		counts[subscription.StateUnknown],
		counts[subscription.StateFailed])
	if c.app.cfg.Metrics.Addr != "" {
		fmt.Fprintf(c.out, "Metrics:    %s\n", c.app.cfg.Metrics.Addr)
	}
	if c.app.protoLog != nil {
		fmt.Fprintf(c.out, "Capture:    %s (%d events)\n", c.app.cfg.Logging.ProtocolLog, c.app.protoLog.Written())
	}
}
