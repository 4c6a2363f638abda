// Package core implements the device-side bootloader: the boot entry
// decision, the page-buffered flash write engine, the command session
// and the cooperative run loop that drives them.
package core

import (
	"errors"
	"time"

	"blockboot/protocol"
)

// RequestSignature is the magic bootup code an application writes to
// the boot signal store to request update mode on the next reset.
const RequestSignature uint64 = 0x5984E3FA6CA1589B

// ErasedByte is the value flash holds after an erase.
const ErasedByte = 0xFF

// Timing constants for the boot path.
const (
	// ButtonSettleDelay lets the button input settle after the pin
	// is configured, before it is sampled.
	ButtonSettleDelay = 10 * time.Microsecond

	// DoubleResetWindow is how long the request signature stays
	// armed waiting for a second physical reset.
	DoubleResetWindow = 2 * time.Second

	// ResetSettleDelay is applied after the session completes,
	// before the device reset is issued.
	ResetSettleDelay = 100 * time.Millisecond
)

var (
	ErrNoConfig         = errors.New("core: config is nil")
	ErrBadBlockSize     = errors.New("core: block size must be a non-zero multiple of 4")
	ErrBadPageSize      = errors.New("core: flash page size unusable")
	ErrNoMCU            = errors.New("core: MCU identifier not set")
	ErrBelowAppStart    = errors.New("core: block address below application start")
	ErrMissingTransport = errors.New("core: transport not set")
	ErrMissingFlash     = errors.New("core: flash driver not set")
)

// Config holds the build-time configuration of the bootloader. All
// values are fixed for a given board; Validate is called once at
// bootloader entry.
type Config struct {
	// ApplicationStart is the first flash address of the
	// application region. Blocks below it are rejected.
	ApplicationStart uint32

	// BlockSize is the protocol transfer unit in bytes. Must be a
	// multiple of the protocol word size and divide the flash page
	// size evenly.
	BlockSize uint32

	// MaxPageSize bounds the page staging buffer. A flash driver
	// reporting a larger page is refused at session setup.
	MaxPageSize uint32

	// MCU is the identifier string reported by CONNECT.
	MCU string

	// EnableButton selects the boot button check. ButtonPin is
	// sampled after ButtonSettleDelay; ButtonPressed is the level
	// that means "pressed".
	EnableButton  bool
	ButtonPin     uint8
	ButtonPressed bool

	// EnableDoubleReset arms the request signature for
	// DoubleResetWindow when a normal boot was decided, so a second
	// physical reset inside the window re-enters update mode.
	EnableDoubleReset bool
}

// Validate checks the configuration invariants that the rest of the
// core relies on.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNoConfig
	}
	if c.BlockSize == 0 || c.BlockSize%4 != 0 {
		return ErrBadBlockSize
	}
	// A WRITE_BLOCK frame carries the header word, the address word
	// and the block payload, and its length field is one byte; the
	// block must leave room for all of that.
	if c.BlockSize > protocol.FrameLengthMax-protocol.FrameHeaderSize-
		protocol.FrameTrailerSize-2*protocol.WordSize {
		return ErrBadBlockSize
	}
	if c.MaxPageSize == 0 || c.MaxPageSize < c.BlockSize {
		return ErrBadPageSize
	}
	if c.MCU == "" {
		return ErrNoMCU
	}
	return nil
}

// blockWords is the number of argument words a WRITE_BLOCK command
// must carry: the block address plus the block payload.
func (c *Config) blockWords() int {
	return int(c.BlockSize/4) + 1
}
