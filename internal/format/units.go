package format

import "fmt"

// FormatBytes formats a byte count using binary units with one decimal,
// e.g. "1.5 GB". Counts below a kilobyte print as plain bytes.
//
// Parameters:
//   - b: The byte count to format.
//
// Returns:
//   - string: A formatted string representing the byte count.
func FormatBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// FormatPercent formats a utilization percentage with one decimal, e.g.
// "42.5%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
