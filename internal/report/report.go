// Package report renders events, outages and the job entry for terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/scheduler"
)

func stateText(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func LastEvent(w io.Writer, e domain.Event) error {
	_, err := fmt.Fprintf(w, "Date:\t%s\nTime:\t%s\nState:\t%s\n", e.Date, e.Time, stateText(e.State))
	if err != nil || e.PrevEvent == nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Since:\t%s %s (down)\n", e.PrevEvent.Date, e.PrevEvent.Time)
	return err
}

var eventHeader = table.Row{"#", "Date", "Time", "State", "Outage Started"}

func Events(w io.Writer, l domain.EventLog) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(eventHeader)
	for i, e := range l.Events {
		started := ""
		if e.PrevEvent != nil {
			started = e.PrevEvent.Date + " " + e.PrevEvent.Time
		}
		t.AppendRow(table.Row{i + 1, e.Date, e.Time, stateText(e.State), started})
	}
	t.Render()
	return nil
}

var outageHeader = table.Row{"Start", "End", "Duration"}

func Outages(w io.Writer, outages []domain.Outage) error {
	if len(outages) == 0 {
		_, err := fmt.Fprintln(w, "No outages recorded.")
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(outageHeader)
	var total time.Duration
	for _, o := range outages {
		end := o.End.Format(time.DateTime)
		if o.Open {
			end = "ongoing"
		}
		total += o.Duration
		t.AppendRow(table.Row{o.Start.Format(time.DateTime), end, o.Duration.Round(time.Second)})
	}
	t.AppendFooter(table.Row{"", "Total", total.Round(time.Second)})
	t.Render()
	return nil
}

func Job(w io.Writer, j scheduler.Job) error {
	_, err := fmt.Fprintf(w, "Installed:\tevery %d min\nNext run:\t%s\nLine:\t%s\n",
		j.PeriodMinutes, j.Next.Format(time.DateTime), j.Line)
	return err
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
