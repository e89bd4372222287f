package sysmon

import "testing"

func TestSample_ReturnsValidRanges(t *testing.T) {
	s := Sample()
	if s.MemPercent < 0 || s.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", s.MemPercent)
	}
	if s.MemUsedBytes > s.MemTotalBytes {
		t.Errorf("MemUsedBytes %d exceeds MemTotalBytes %d", s.MemUsedBytes, s.MemTotalBytes)
	}
}

func TestSample_MemTotalNonZero(t *testing.T) {
	s := Sample()
	if s.MemTotalBytes == 0 {
		t.Error("expected non-zero MemTotalBytes on a running system")
	}
}
