//go:build windows

package perfmon

import (
	"github.com/agbru/perfmon/internal/counter"
	"github.com/agbru/perfmon/internal/pdh"
)

func newDefaultSubsystem() (counter.Subsystem, error) {
	return pdh.New(), nil
}
