//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"
)

// Watchdog scratch registers survive a soft reset but clear on
// power-on, which is exactly the lifetime the bootup code needs.
// SCRATCH0/1 hold the low/high words of the 64-bit code.
const watchdogBase = 0x40058000

var (
	scratch0 = (*volatile.Register32)(unsafe.Pointer(uintptr(watchdogBase + 0x0C)))
	scratch1 = (*volatile.Register32)(unsafe.Pointer(uintptr(watchdogBase + 0x10)))
)

type scratchSignal struct{}

func (s *scratchSignal) Get() uint64 {
	return uint64(scratch1.Get())<<32 | uint64(scratch0.Get())
}

func (s *scratchSignal) Set(code uint64) {
	scratch0.Set(uint32(code))
	scratch1.Set(uint32(code >> 32))
}
