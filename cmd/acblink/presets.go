// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/spf13/cobra"
)

func newPresetsCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List recording presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			presets, err := c.ListPresets(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), presets)
			}
			tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFORMAT\tBITRATE\tBUILTIN")
			for _, p := range presets {
				bitrate := "lossless"
				if !p.Format.Lossless() {
					bitrate = fmt.Sprintf("%d kbps", p.Bitrate)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Format, bitrate, dvr.IsBuiltinPreset(p.ID))
			}
			return tw.Flush()
		},
	}
}
