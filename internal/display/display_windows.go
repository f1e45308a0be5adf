//go:build windows

package display

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// List returns the available displays using WinAPI. Density is the system
// DPI, which is what a process without per-monitor awareness sees.
func List() ([]Display, error) {
	state := &enumState{density: systemDensity()}
	callback := syscall.NewCallback(state.enumProc)

	if ok := win.EnumDisplayMonitors(0, nil, callback, 0); !ok {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %w", syscall.GetLastError())
	}
	if len(state.list) == 0 {
		return nil, fmt.Errorf("no displays detected")
	}
	return state.list, nil
}

// systemDensity reads LOGPIXELSX from the screen device context.
func systemDensity() float64 {
	hdc := win.GetDC(0)
	if hdc == 0 {
		return 1
	}
	defer win.ReleaseDC(0, hdc)
	return DensityFromDPI(int(win.GetDeviceCaps(hdc, win.LOGPIXELSX)))
}

type enumState struct {
	list    []Display
	index   int
	density float64
}

// enumProc is the EnumDisplayMonitors callback.
func (s *enumState) enumProc(hMonitor win.HMONITOR, hdc win.HDC, rect *win.RECT, lparam uintptr) uintptr {
	var info win.MONITORINFO
	info.CbSize = uint32(unsafe.Sizeof(info))
	if !win.GetMonitorInfo(hMonitor, &info) {
		return 1
	}

	r := info.RcMonitor
	s.index++
	s.list = append(s.list, Display{
		Index:   s.index,
		X:       int(r.Left),
		Y:       int(r.Top),
		W:       int(r.Right - r.Left),
		H:       int(r.Bottom - r.Top),
		Primary: info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
		Density: s.density,
	})
	return 1
}
