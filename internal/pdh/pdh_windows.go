//go:build windows

// This file holds the raw pdh.dll bindings: lazily loaded procedures, the
// formatted-value struct layouts, and the buffer-growth protocol shared by
// every array-returning call.

package pdh

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modpdh = windows.NewLazySystemDLL("pdh.dll")

	procPdhOpenQueryW                = modpdh.NewProc("PdhOpenQueryW")
	procPdhCloseQuery                = modpdh.NewProc("PdhCloseQuery")
	procPdhAddCounterW               = modpdh.NewProc("PdhAddCounterW")
	procPdhRemoveCounter             = modpdh.NewProc("PdhRemoveCounter")
	procPdhCollectQueryData          = modpdh.NewProc("PdhCollectQueryData")
	procPdhGetFormattedCounterValue  = modpdh.NewProc("PdhGetFormattedCounterValue")
	procPdhGetFormattedCounterArrayW = modpdh.NewProc("PdhGetFormattedCounterArrayW")
	procPdhExpandWildCardPathW       = modpdh.NewProc("PdhExpandWildCardPathW")
)

const (
	fmtLong     = 0x00000100
	fmtDouble   = 0x00000200
	fmtLarge    = 0x00000400
	fmtNoCap100 = 0x00008000

	statusSuccess  = 0
	statusMoreData = 0x800007D2
)

// statusError is a non-success PDH status code.
type statusError uint32

func (e statusError) Error() string {
	return fmt.Sprintf("pdh status 0x%08X", uint32(e))
}

func check(status uintptr) error {
	if uint32(status) == statusSuccess {
		return nil
	}
	return statusError(status)
}

// fmtCounterValue mirrors PDH_FMT_COUNTERVALUE on 64-bit: a 32-bit status,
// 4 bytes of padding, then an 8-byte union holding the formatted value.
type fmtCounterValue struct {
	CStatus uint32
	_       uint32
	Data    uint64
}

func (v *fmtCounterValue) double() float64 { return math.Float64frombits(v.Data) }
func (v *fmtCounterValue) large() int64    { return int64(v.Data) }

// long reads the LONG member, which occupies the union's low 4 bytes.
func (v *fmtCounterValue) long() int32 { return int32(uint32(v.Data)) }

// fmtCounterValueItem mirrors PDH_FMT_COUNTERVALUE_ITEM_W on 64-bit.
type fmtCounterValueItem struct {
	SzName   *uint16
	FmtValue fmtCounterValue
}

func openQuery() (uintptr, error) {
	var handle uintptr
	status, _, _ := procPdhOpenQueryW.Call(0, 0, uintptr(unsafe.Pointer(&handle)))
	if err := check(status); err != nil {
		return 0, err
	}
	return handle, nil
}

func closeQuery(query uintptr) error {
	status, _, _ := procPdhCloseQuery.Call(query)
	return check(status)
}

func addCounter(query uintptr, path string) (uintptr, error) {
	wpath, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var handle uintptr
	status, _, _ := procPdhAddCounterW.Call(
		query,
		uintptr(unsafe.Pointer(wpath)),
		0,
		uintptr(unsafe.Pointer(&handle)),
	)
	if err := check(status); err != nil {
		return 0, err
	}
	return handle, nil
}

func removeCounter(handle uintptr) error {
	status, _, _ := procPdhRemoveCounter.Call(handle)
	return check(status)
}

func collectQueryData(query uintptr) error {
	status, _, _ := procPdhCollectQueryData.Call(query)
	return check(status)
}

func getFormattedValue(handle uintptr, format uint32) (fmtCounterValue, error) {
	var value fmtCounterValue
	status, _, _ := procPdhGetFormattedCounterValue.Call(
		handle,
		uintptr(format),
		0,
		uintptr(unsafe.Pointer(&value)),
	)
	if err := check(status); err != nil {
		return fmtCounterValue{}, err
	}
	return value, nil
}

// getFormattedArray fetches every instance of a wildcard counter. The call
// is retried on PDH_MORE_DATA because the instance set can grow between the
// size probe and the fetch.
func getFormattedArray(handle uintptr, format uint32) ([]fmtCounterValueItem, []byte, error) {
	var bufSize, itemCount uint32
	status, _, _ := procPdhGetFormattedCounterArrayW.Call(
		handle,
		uintptr(format),
		uintptr(unsafe.Pointer(&bufSize)),
		uintptr(unsafe.Pointer(&itemCount)),
		0,
	)
	for uint32(status) == statusMoreData {
		buf := make([]byte, bufSize)
		status, _, _ = procPdhGetFormattedCounterArrayW.Call(
			handle,
			uintptr(format),
			uintptr(unsafe.Pointer(&bufSize)),
			uintptr(unsafe.Pointer(&itemCount)),
			uintptr(unsafe.Pointer(&buf[0])),
		)
		if uint32(status) == statusSuccess {
			items := unsafe.Slice((*fmtCounterValueItem)(unsafe.Pointer(&buf[0])), itemCount)
			// buf is returned alongside the items to keep the name
			// pointers reachable while the caller decodes them.
			return items, buf, nil
		}
	}
	if err := check(status); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

// expandWildcardPath expands a wildcard counter path into the concrete
// instance paths currently present, using the same growth protocol.
func expandWildcardPath(pattern string) ([]string, error) {
	wpattern, err := windows.UTF16PtrFromString(pattern)
	if err != nil {
		return nil, err
	}
	var length uint32
	status, _, _ := procPdhExpandWildCardPathW.Call(
		0,
		uintptr(unsafe.Pointer(wpattern)),
		0,
		uintptr(unsafe.Pointer(&length)),
		0,
	)
	for uint32(status) == statusMoreData {
		buf := make([]uint16, length)
		status, _, _ = procPdhExpandWildCardPathW.Call(
			0,
			uintptr(unsafe.Pointer(wpattern)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&length)),
			0,
		)
		if uint32(status) == statusSuccess {
			return multiSzToStrings(buf[:length]), nil
		}
	}
	return nil, check(status)
}
