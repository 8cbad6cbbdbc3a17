// Command rta-log views and analyzes RTA protocol log files.
//
// Log files are written by rta-monitor with the --protocol-log flag.
//
// Usage:
//
//	rta-log <command> [flags] <file.rlog>
//
// Examples:
//
//	# View all events
//	rta-log view session.rlog
//
//	# View only decoded frames for one resource
//	rta-log view --layer wire --resource "https://userpresence.xboxlive.com/users/xuid(1)/devices" session.rlog
//
//	# Export to CSV
//	rta-log export --format csv -o session.csv session.rlog
//
//	# Keep only the second socket
//	rta-log filter --conn-id 5d0c2a1e-... -o second.rlog session.rlog
//
//	# Show statistics
//	rta-log stats session.rlog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xbl-rta/rta-go/cmd/rta-log/commands"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rta-log",
		Short:        "RTA protocol log analyzer",
		SilenceUsage: true,
	}
	root.AddCommand(newViewCommand(), newExportCommand(), newFilterCommand(), newStatsCommand())
	return root
}

// addFilterFlags binds the filter flags shared by view and filter.
func addFilterFlags(cmd *cobra.Command, opts *commands.FilterOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	f.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	f.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	f.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, service)")
	f.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	f.StringVar(&opts.Category, "category", "", "Filter by category (message, control, state, error)")
	f.StringVar(&opts.SubscriptionID, "sub-id", "", "Filter by subscription ID")
	f.StringVar(&opts.Resource, "resource", "", "Filter by resource URI")
	f.StringVar(&opts.MessageType, "type", "", "Filter by message type (subscribe, unsubscribe, event, resync)")
}

func newViewCommand() *cobra.Command {
	var opts commands.FilterOptions
	cmd := &cobra.Command{
		Use:   "view [flags] <file.rlog>",
		Short: "View log file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &opts)
	return cmd
}

func newExportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [flags] <file.rlog>",
		Short: "Export log file to JSONL or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunExport(args[0], format, output)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newFilterCommand() *cobra.Command {
	var (
		opts   commands.FilterOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter [flags] <file.rlog>",
		Short: "Filter log file and write to new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, output)
			return nil
		},
	}
	addFilterFlags(cmd, &opts)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.rlog>",
		Short: "Show statistics about the log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
