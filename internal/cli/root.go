// Package cli implements traceviewctl, a command line client for the trace
// query service.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenttrace/traceview/internal/domain"
)

// Version is set at build time
var Version = "0.1.0"

type rootOptions struct {
	server  string
	timeout time.Duration
}

func (o *rootOptions) client() *Client {
	return NewClient(o.server, o.timeout)
}

// NewRootCommand builds the traceviewctl command tree writing results to out
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "traceviewctl",
		Short: "Query captured traces from a traceview server",
		Long: `traceviewctl reads trace windows from a traceview server.

Bounds are epoch milliseconds. A negative --from is relative to now and
leaving --to unset keeps the window open.

Example:
  traceviewctl window --from -60000
  traceviewctl window --from 1700000000000 --to 1700000060000
  traceviewctl summaries --from -3600000
  traceviewctl export --from -86400000 --compression none`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	defaultServer := os.Getenv("TRACEVIEW_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "traceview server URL (or set TRACEVIEW_SERVER)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout")

	root.AddCommand(
		newWindowCommand(opts),
		newSummariesCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// Execute runs the CLI against stdout
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func addRangeFlags(cmd *cobra.Command, q *domain.TimeRangeQuery) {
	cmd.Flags().Int64Var(&q.From, "from", 0, "Window start in epoch ms, negative for relative to now")
	cmd.Flags().Int64Var(&q.To, "to", 0, "Window end in epoch ms, 0 for now")
}

func newWindowCommand(opts *rootOptions) *cobra.Command {
	var (
		q    domain.TimeRangeQuery
		post bool
	)
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print the traces captured in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().Window(cmd.Context(), q, post, cmd.OutOrStdout())
		},
	}
	addRangeFlags(cmd, &q)
	cmd.Flags().BoolVar(&post, "post", false, "Send the range as a JSON body")
	return cmd
}

func newSummariesCommand(opts *rootOptions) *cobra.Command {
	var q domain.TimeRangeQuery
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "Print trace durations and percentiles for a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().Summaries(cmd.Context(), q, cmd.OutOrStdout())
		},
	}
	addRangeFlags(cmd, &q)
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		q           domain.TimeRangeQuery
		compression string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a window to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().Export(cmd.Context(), q, compression, cmd.OutOrStdout())
		},
	}
	addRangeFlags(cmd, &q)
	cmd.Flags().StringVar(&compression, "compression", "", "gzip or none, server default when empty")
	return cmd
}
