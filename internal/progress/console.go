package progress

import (
	"context"
	"fmt"
	"io"

	"RedditCurator/internal/domain"
)

// Render drains events onto w until the channel closes or ctx ends. It is the
// only writer of w.
func Render(ctx context.Context, events <-chan domain.ProgressEvent, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := io.WriteString(w, Format(event)); err != nil {
				return fmt.Errorf("render progress: %w", err)
			}
		}
	}
}

// Format renders a single event as one terminal line.
func Format(event domain.ProgressEvent) string {
	if event.Display != nil {
		d := event.Display
		line := fmt.Sprintf("[%-8s] %s", d.Verdict, d.Title)
		if d.Detail != "" {
			line += " | " + d.Detail
		}
		return line + "\n"
	}
	if event.Final {
		return "== " + event.Message + "\n"
	}
	if event.Percent == domain.Indeterminate {
		return fmt.Sprintf("[ ... ] %s\n", event.Message)
	}
	return fmt.Sprintf("[%3d%%] %s\n", event.Percent, event.Message)
}
