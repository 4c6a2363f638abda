//go:build rp2040 || rp2350

package main

import (
	"device/arm"
)

// jumpToApplication hands control to the firmware at addr. The vector
// table there starts with the initial stack pointer and the reset
// handler; interrupts are disabled first so nothing fires while the
// stack is being swapped. Does not return.
func jumpToApplication(addr uint32) {
	arm.DisableInterrupts()

	// Point the vector table at the application before jumping.
	const scbVTOR = 0xE000ED08
	arm.AsmFull(`
		str {addr}, [{vtor}]
		mov r1, {addr}
		ldr r0, [r1]
		msr msp, r0
		ldr r0, [r1, #4]
		bx r0
	`, map[string]interface{}{
		"addr": addr,
		"vtor": uint32(scbVTOR),
	})

	// Unreachable.
	for {
	}
}
