// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ManuGH/acblink/internal/api"
	"github.com/ManuGH/acblink/internal/config"
	"github.com/spf13/cobra"
)

const envDaemonAddr = "ACBLINK_ADDR"

// clientOptions are the persistent flags shared by every command that talks
// to a running daemon.
type clientOptions struct {
	addr    string
	timeout time.Duration
	json    bool
}

func (o *clientOptions) client() (*api.Client, error) {
	return api.NewClient(o.addr, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}

	root := &cobra.Command{
		Use:   "acblink",
		Short: "Schedule and record ACB Media radio streams",
		Long: `acblink records ACB Media radio streams on a schedule.

Run "acblink run" to start the daemon. The other commands talk to a
running daemon over its local control API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAddr := config.ParseString(envDaemonAddr, config.DefaultAPIListenAddr)
	root.PersistentFlags().StringVar(&opts.addr, "addr", defaultAddr, "daemon API address (env "+envDaemonAddr+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", api.DefaultClientTimeout, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(
		newRunCmd(),
		newVersionCmd(),
		newScheduleCmd(opts),
		newListCmd(opts),
		newUpcomingCmd(opts),
		newCancelCmd(opts),
		newDeleteCmd(opts),
		newRecordNowCmd(opts),
		newStopCmd(opts),
		newStatusCmd(opts),
		newPresetsCmd(opts),
		newEventsCmd(opts),
		newAlertsCmd(opts),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
