package pdh

import "unicode/utf16"

// multiSzToStrings splits a REG_MULTI_SZ style buffer of UTF-16 code units
// into its component strings. The list ends at an empty string; a missing
// final terminator is tolerated.
func multiSzToStrings(buf []uint16) []string {
	var out []string
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] != 0 {
			continue
		}
		if i == start {
			break
		}
		out = append(out, string(utf16.Decode(buf[start:i])))
		start = i + 1
	}
	if start < len(buf) {
		out = append(out, string(utf16.Decode(buf[start:])))
	}
	return out
}
