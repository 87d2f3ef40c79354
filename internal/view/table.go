// Package view renders scheduler state as text tables for the console and the CLI.
package view

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// GroupRow is one line of the groups table.
type GroupRow struct {
	GroupID   int64
	LiveCount int
	WorkerID  uint64
}

// JournalRow is one line of the journal table.
type JournalRow struct {
	At      time.Time
	Payload map[string]any
	RunID   string
	Kind    string
	AlarmID *int64
	GroupID *int64
	ID      int64
}

// Alarms prints pending alarms with the time left relative to now.
func Alarms(w io.Writer, alarms []alarm.Alarm, now time.Time) {
	tw := newWriter(w)
	tw.AppendHeader(table.Row{"Alarm", "Group", "Seconds", "Due At", "Left", "Tag", "Message"})

	for _, a := range alarms {
		left := a.DueAt.Sub(now).Truncate(time.Second)
		if left < 0 {
			left = 0
		}

		tw.AppendRow(table.Row{
			a.ID,
			a.GroupID,
			a.Seconds,
			a.DueAt.Local().Format(time.DateTime),
			left.String(),
			a.Tag.String(),
			a.Message,
		})
	}

	tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(alarms)})
	tw.Render()
}

// Groups prints active groups.
func Groups(w io.Writer, groups []GroupRow) {
	tw := newWriter(w)
	tw.AppendHeader(table.Row{"Group", "Alarms", "Worker"})

	for _, g := range groups {
		tw.AppendRow(table.Row{g.GroupID, g.LiveCount, g.WorkerID})
	}

	tw.Render()
}

// Journal prints journal rows.
func Journal(w io.Writer, rows []JournalRow) {
	tw := newWriter(w)
	tw.AppendHeader(table.Row{"#", "Time", "Run", "Kind", "Alarm", "Group", "Message"})

	for _, r := range rows {
		message, _ := r.Payload["message"].(string)

		tw.AppendRow(table.Row{
			r.ID,
			r.At.Local().Format(time.DateTime),
			shortRun(r.RunID),
			r.Kind,
			optional(r.AlarmID),
			optional(r.GroupID),
			message,
		})
	}

	tw.Render()
}

func newWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	return tw
}

func optional(v *int64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprint(*v)
}

func shortRun(runID string) string {
	const n = 8

	if len(runID) <= n {
		return runID
	}

	return runID[:n]
}
