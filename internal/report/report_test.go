package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/icheck/internal/domain"
)

func sampleLog() domain.EventLog {
	down := domain.Event{Date: "2025-08-18", Time: "12:05:00"}
	up := domain.Event{Date: "2025-08-18", Time: "12:20:00", State: true, PrevEvent: &down}
	return domain.NewEventLog(domain.Event{Date: "2025-08-18", Time: "12:00:00", State: true}).
		Append(down).Append(up)
}

func TestLastEvent(t *testing.T) {
	var buf bytes.Buffer
	l := sampleLog()
	if err := LastEvent(&buf, l.LastEvent); err != nil {
		t.Fatal(err)
	}
	want := "Date:\t2025-08-18\nTime:\t12:20:00\nState:\tup\nSince:\t2025-08-18 12:05:00 (down)\n"
	if buf.String() != want {
		t.Fatalf("want %q got %q", want, buf.String())
	}
}

func TestEvents_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := Events(&buf, sampleLog()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"DATE", "12:20:00", "down", "2025-08-18 12:05:00"} {
		if !strings.Contains(out, s) {
			t.Fatalf("table missing %q:\n%s", s, out)
		}
	}
}

func TestOutages(t *testing.T) {
	var buf bytes.Buffer
	if err := Outages(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No outages") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	now := time.Date(2025, 8, 18, 13, 0, 0, 0, time.Local)
	if err := Outages(&buf, sampleLog().Outages(now)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "15m0s") {
		t.Fatalf("want 15m0s duration:\n%s", buf.String())
	}
}
