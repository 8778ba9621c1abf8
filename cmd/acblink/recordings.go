// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// startLayouts are accepted by --start in addition to RFC 3339. They are read
// in local time.
var startLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02 15:04:05"}

func parseStart(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start %q: use RFC 3339 or YYYY-MM-DD HH:MM", raw)
}

type requestFlags struct {
	name       string
	streamName string
	streamURL  string
	stationID  string
	duration   int
	recurrence string
	preset     string
}

func (f *requestFlags) bind(cmd *cobra.Command, withRecurrence bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "recording name (defaults to the stream name)")
	cmd.Flags().StringVar(&f.streamName, "stream-name", "", "display name of the stream")
	cmd.Flags().StringVar(&f.streamURL, "url", "", "stream URL (http or https)")
	cmd.Flags().StringVar(&f.stationID, "station", "", "station id")
	cmd.Flags().IntVar(&f.duration, "duration", 60, "duration in minutes")
	cmd.Flags().StringVar(&f.preset, "preset", "", "preset id (defaults to standard)")
	if withRecurrence {
		cmd.Flags().StringVar(&f.recurrence, "recurrence", string(dvr.RecurrenceOnce), "once, daily, weekdays, weekends or weekly")
	}
	_ = cmd.MarkFlagRequired("url")
}

func (f *requestFlags) request() dvr.ScheduleRequest {
	return dvr.ScheduleRequest{
		Name:            f.name,
		StreamName:      f.streamName,
		StreamURL:       f.streamURL,
		StationID:       f.stationID,
		DurationMinutes: f.duration,
		Recurrence:      dvr.Recurrence(f.recurrence),
		PresetID:        f.preset,
	}
}

func newScheduleCmd(opts *clientOptions) *cobra.Command {
	var flags requestFlags
	var start string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a recording",
		Example: `  acblink schedule --url https://radio.example/live --stream-name "ACB Radio" \
    --start "2025-03-10 07:00" --duration 120 --recurrence weekdays`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseStart(start)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			req := flags.request()
			req.StartTime = at
			rec, err := c.ScheduleRecording(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), rec)
			}
			fmt.Fprintf(stdout(cmd), "scheduled %s %q, next run %s\n", rec.ID, rec.Name, rec.NextRun.Local().Format(time.RFC1123))
			return nil
		},
	}
	flags.bind(cmd, true)
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC 3339 or YYYY-MM-DD HH:MM local time")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newRecordNowCmd(opts *clientOptions) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "record-now",
		Short: "Start recording a stream immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			rec, err := c.RecordNow(cmd.Context(), flags.request())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), rec)
			}
			fmt.Fprintf(stdout(cmd), "recording %s to %s for %d minutes\n", rec.ID, rec.OutputPath, rec.DurationMinutes)
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func listCmd(opts *clientOptions, use, short string, upcoming bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			fetch := c.ListRecordings
			if upcoming {
				fetch = c.UpcomingRecordings
			}
			recs, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), recs)
			}
			return writeRecordings(stdout(cmd), recs, time.Now())
		},
	}
}

func newListCmd(opts *clientOptions) *cobra.Command {
	return listCmd(opts, "list", "List all scheduled recordings", false)
}

func newUpcomingCmd(opts *clientOptions) *cobra.Command {
	return listCmd(opts, "upcoming", "List scheduled recordings, soonest first", true)
}

func writeRecordings(w io.Writer, recs []dvr.ScheduledRecording, now time.Time) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no recordings")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tRECURRENCE\tNEXT RUN\tDURATION")
	for _, r := range recs {
		next := "-"
		if r.Status == dvr.StatusScheduled {
			next = fmt.Sprintf("%s (%s)", r.NextRun.Local().Format("2006-01-02 15:04"), humanize.RelTime(r.NextRun, now, "ago", "from now"))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dm\n", r.ID, r.Name, r.Status, r.Recurrence, next, r.DurationMinutes)
	}
	return tw.Flush()
}

func idCmd(opts *clientOptions, use, short string, run func(cmd *cobra.Command, opts *clientOptions, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}
}

func newCancelCmd(opts *clientOptions) *cobra.Command {
	return idCmd(opts, "cancel", "Cancel a scheduled recording", func(cmd *cobra.Command, opts *clientOptions, id string) error {
		c, err := opts.client()
		if err != nil {
			return err
		}
		rec, err := c.CancelRecording(cmd.Context(), id)
		if err != nil {
			return err
		}
		if opts.json {
			return printJSON(stdout(cmd), rec)
		}
		fmt.Fprintf(stdout(cmd), "cancelled %s\n", rec.ID)
		return nil
	})
}

func newDeleteCmd(opts *clientOptions) *cobra.Command {
	return idCmd(opts, "delete", "Delete a recording job", func(cmd *cobra.Command, opts *clientOptions, id string) error {
		c, err := opts.client()
		if err != nil {
			return err
		}
		if err := c.DeleteRecording(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "deleted %s\n", id)
		return nil
	})
}

func newStopCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			stopped, err := c.StopRecorder(cmd.Context())
			if err != nil {
				return err
			}
			if stopped {
				fmt.Fprintln(stdout(cmd), "stop requested")
			} else {
				fmt.Fprintln(stdout(cmd), "nothing is recording")
			}
			return nil
		},
	}
}

func newStatusCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and the running capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			health, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := c.Recorder(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), map[string]any{"health": health, "recorder": rec})
			}
			w := stdout(cmd)
			fmt.Fprintf(w, "daemon %s (%s), up %s\n", health.Status, health.Version, time.Duration(health.UptimeSeconds)*time.Second)
			if health.LastSaveError != "" {
				fmt.Fprintf(w, "last save error: %s\n", health.LastSaveError)
			}
			if !rec.Active || rec.Item == nil {
				fmt.Fprintln(w, "recorder idle")
				return nil
			}
			fmt.Fprintf(w, "recording %q: %.0f%%, %s written to %s\n",
				rec.Item.Name, rec.Percent, humanize.Bytes(uint64(max(rec.Item.BytesWritten, 0))), rec.Item.OutputPath)
			return nil
		},
	}
}
