package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
)

// notify is best effort: the event is already durable when it runs.
func (t *Tracker) notify(ctx context.Context, next domain.Event) {
	if t.Notifier == nil {
		return
	}
	title, text := alertMessage(next)
	if err := t.Notifier.Send(ctx, title, text); err != nil {
		t.Logger.Warn("notify_error", zap.String("title", title), zap.Error(err))
	}
}

func alertMessage(next domain.Event) (string, string) {
	if !next.State {
		return "Connectivity DOWN", fmt.Sprintf("Lost at %s %s", next.Date, next.Time)
	}
	text := fmt.Sprintf("Restored at %s %s", next.Date, next.Time)
	if next.PrevEvent == nil {
		return "Connectivity RESTORED", text
	}
	text += fmt.Sprintf("\nDown since %s %s", next.PrevEvent.Date, next.PrevEvent.Time)
	start, err1 := next.PrevEvent.At()
	end, err2 := next.At()
	if err1 == nil && err2 == nil {
		text += fmt.Sprintf("\nDowntime: %s", end.Sub(start))
	}
	return "Connectivity RESTORED", text
}
