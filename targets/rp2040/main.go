//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"blockboot/core"
)

// Board configuration. BOOTSEL-less boards expose the boot button on a
// spare GPIO; gpio23 is the usual choice on Pico-style carriers.
var config = &core.Config{
	ApplicationStart: 0x10008000, // XIP flash, after the bootloader
	BlockSize:        64,
	MaxPageSize:      4096,
	MCU:              "rp2040",

	EnableButton:  true,
	ButtonPin:     23,
	ButtonPressed: false, // active low, pulled up

	EnableDoubleReset: true,
}

var transport *core.StreamTransport

func main() {
	// Clear any watchdog state from a previous run before it can
	// fire mid-update.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}

	transport = core.NewStreamTransport(&usbLink{}, 512)

	boot, err := core.NewBootloader(config, core.Hardware{
		Transport: transport,
		Flash:     newMCUFlash(),
		GPIO:      &pinGPIO{},
		Signal:    &scratchSignal{},
		Delay:     time.Sleep,
		JumpToApp: func() { jumpToApplication(config.ApplicationStart) },
	})
	if err != nil {
		// Unusable board configuration; hold for the watchdog.
		for {
			time.Sleep(time.Second)
		}
	}

	go usbReaderLoop()

	boot.Main()
}

// usbReaderLoop pumps USB CDC bytes into the transport. It runs in a
// goroutine so the cooperative update loop never blocks on the host.
func usbReaderLoop() {
	for {
		if machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err == nil {
				transport.Feed([]byte{b})
				continue
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// usbLink adapts the USB CDC serial to the transport's byte link.
type usbLink struct{}

func (l *usbLink) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}

// TxEmpty: machine.Serial.Write blocks until the CDC endpoint accepts
// the data, so nothing of ours is still queued once Write returns.
func (l *usbLink) TxEmpty() bool {
	return true
}

// Reboot resets the chip through the watchdog, which also handles USB
// re-enumeration cleanly.
func (l *usbLink) Reboot() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
		return
	}
	if err := machine.Watchdog.Start(); err != nil {
		return
	}
	for {
		time.Sleep(time.Millisecond)
	}
}

// pinGPIO reads the boot button.
type pinGPIO struct{}

func (g *pinGPIO) ReadPin(pin uint8) bool {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return p.Get()
}
