package format

import (
	"fmt"
	"time"
)

// FormatDuration formats a time.Duration for display, such as the elapsed
// time in the dashboard header. It shows microseconds for durations less
// than a millisecond, milliseconds for durations less than a second, and the
// default string representation otherwise.
//
// Parameters:
//   - d: The duration to format.
//
// Returns:
//   - string: A formatted string representing the duration.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}
