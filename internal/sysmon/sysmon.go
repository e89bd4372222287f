// Package sysmon provides system-wide memory sampling to complement the
// counter-based CPU and GPU readings in the plain-output mode.
package sysmon

import "github.com/shirou/gopsutil/v4/mem"

// Stats holds a single snapshot of system memory usage.
type Stats struct {
	MemPercent    float64 // 0.0 .. 100.0
	MemUsedBytes  uint64
	MemTotalBytes uint64
}

// Sample collects a single system memory snapshot. Returns zero values on
// error.
func Sample() Stats {
	var s Stats
	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
		s.MemUsedBytes = vmem.Used
		s.MemTotalBytes = vmem.Total
	}
	return s
}
