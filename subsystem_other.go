//go:build !windows

package perfmon

import (
	"errors"

	"github.com/agbru/perfmon/internal/counter"
	apperrors "github.com/agbru/perfmon/internal/errors"
)

var errUnsupportedPlatform = errors.New("performance counters are only available on windows")

func newDefaultSubsystem() (counter.Subsystem, error) {
	return nil, apperrors.InitError{Component: "counter subsystem", Cause: errUnsupportedPlatform}
}
