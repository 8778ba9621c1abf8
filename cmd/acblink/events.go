// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/acblink/internal/api"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/spf13/cobra"
)

func newEventsCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List scheduled calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(stdout(cmd), "no events")
				return nil
			}
			tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTART\tACTION\tSTATUS\tERROR")
			for _, ev := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					ev.ID, ev.Title, ev.Start.Local().Format("2006-01-02 15:04"), ev.Action, ev.Status, ev.ErrorMessage)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newEventAddCmd(opts), newEventCancelCmd(opts), newEventDeleteCmd(opts))
	return cmd
}

func newEventAddCmd(opts *clientOptions) *cobra.Command {
	var (
		ev       events.CalendarEvent
		start    string
		length   time.Duration
		reminder int
		action   string
		preset   string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a reminder or automatic action for a calendar event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseStart(start)
			if err != nil {
				return err
			}
			ev.Start = at
			ev.End = at.Add(length)
			req := api.ScheduleEventRequest{CalendarEvent: ev, Action: events.Action(action), PresetID: preset}
			if cmd.Flags().Changed("reminder") {
				req.ReminderMinutes = &reminder
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			scheduled, err := c.ScheduleEvent(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), scheduled)
			}
			fmt.Fprintf(stdout(cmd), "scheduled event %s (%s), reminder %d minutes before\n", scheduled.ID, scheduled.Action, scheduled.ReminderMinutes)
			return nil
		},
	}
	cmd.Flags().StringVar(&ev.ID, "id", "", "calendar event id (generated when empty)")
	cmd.Flags().StringVar(&ev.Title, "title", "", "event title")
	cmd.Flags().StringVar(&ev.Category, "category", "", "event category")
	cmd.Flags().StringVar(&ev.StreamName, "stream-name", "", "stream carrying the event")
	cmd.Flags().StringVar(&ev.StreamURL, "url", "", "stream URL, required for tune and record actions")
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC 3339 or YYYY-MM-DD HH:MM local time")
	cmd.Flags().DurationVar(&length, "length", time.Hour, "event length")
	cmd.Flags().IntVar(&reminder, "reminder", 0, "reminder lead time in minutes (default from daemon config)")
	cmd.Flags().StringVar(&action, "action", string(events.ActionAlert), "alert, tune, record or tune_record")
	cmd.Flags().StringVar(&preset, "preset", "", "preset for record actions")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newEventCancelCmd(opts *clientOptions) *cobra.Command {
	return idCmd(opts, "cancel", "Cancel an event", func(cmd *cobra.Command, opts *clientOptions, id string) error {
		c, err := opts.client()
		if err != nil {
			return err
		}
		if _, err := c.CancelEvent(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "cancelled event %s\n", id)
		return nil
	})
}

func newEventDeleteCmd(opts *clientOptions) *cobra.Command {
	return idCmd(opts, "delete", "Delete an event", func(cmd *cobra.Command, opts *clientOptions, id string) error {
		c, err := opts.client()
		if err != nil {
			return err
		}
		if err := c.DeleteEvent(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "deleted event %s\n", id)
		return nil
	})
}

func newAlertsCmd(opts *clientOptions) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show live and upcoming event alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			alerts, err := c.Alerts(cmd.Context(), hours)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(stdout(cmd), alerts)
			}
			if len(alerts) == 0 {
				fmt.Fprintln(stdout(cmd), "no upcoming events")
				return nil
			}
			for _, a := range alerts {
				fmt.Fprintf(stdout(cmd), "[%s] %s\n", a.Label, a.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", events.DefaultAlertHours, "look-ahead window in hours")
	return cmd
}
