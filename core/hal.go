package core

import (
	"time"

	"blockboot/protocol"
)

// Transport carries protocol messages between the device and the
// host. Receive must not block: it returns false when no complete
// message is pending. Send enqueues one outbound message; TxEmpty
// reports whether everything enqueued has actually left the device.
type Transport interface {
	Send(msg protocol.Message)
	Receive() (protocol.Message, bool)
	TxEmpty() bool
	RebootDevice()
}

// FlashDriver abstracts the flash peripheral. WritePage programs one
// whole erase page; addresses are absolute flash addresses. Complete
// is called once after the final page has been written, for drivers
// that need to mark the image valid.
type FlashDriver interface {
	PageSize() uint32
	WritePage(addr uint32, data []byte) error
	ReadBlock(addr uint32, out []byte) error
	Complete() error
}

// GPIO reads a digital input pin. The driver owns pin setup.
type GPIO interface {
	ReadPin(pin uint8) bool
}

// BootSignal persists a 64-bit bootup code across a soft reset. A
// power-on reset clears it.
type BootSignal interface {
	Get() uint64
	Set(code uint64)
}

// DelayFunc blocks for the given duration. The boot path is single
// threaded, so a plain busy wait or sleep both satisfy it.
type DelayFunc func(d time.Duration)
