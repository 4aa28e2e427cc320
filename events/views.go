package events

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// EventsList renders the event rows shown in the session sidebar.
func EventsList(eventsList []Event) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(eventsList) == 0 {
			_, err := io.WriteString(w, `<p class="text-gray-500 text-sm">No events yet</p>`)
			return err
		}

		if _, err := io.WriteString(w, `<ul class="space-y-1">`); err != nil {
			return err
		}
		for _, event := range eventsList {
			_, err := fmt.Fprintf(w,
				`<li id="event-%s"><span class="px-2 py-1 rounded text-xs %s">%s</span> <span class="text-sm">%s</span> <time class="text-xs text-gray-500">%s</time></li>`,
				templ.EscapeString(event.ID),
				getEventTypeClass(event.Type),
				templ.EscapeString(formatEventType(event.Type)),
				templ.EscapeString(event.Filename),
				event.Timestamp.Format("15:04:05"))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}
