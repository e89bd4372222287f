package app

import (
	"fmt"
	"io"
	"runtime"
)

// Build information, overridden at link time via -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// HasVersionFlag reports whether the arguments request version output.
// Scanning stops at the "--" terminator.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-version", "--version":
			return true
		case "--":
			return false
		}
	}
	return false
}

// PrintVersion writes the build information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "perfmon %s\n", Version)
	fmt.Fprintf(w, "  commit:     %s\n", Commit)
	fmt.Fprintf(w, "  built:      %s\n", BuildDate)
	fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
