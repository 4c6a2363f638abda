// Package protocol implements the blockboot wire protocol: framed
// command messages carrying little-endian 32-bit words, protected by a
// CRC16 trailer.
package protocol

// Version is the protocol version reported in the CONNECT acknowledgment.
const Version = 1

// Frame layout constants
const (
	FrameStart = 0x01 // first byte of every frame
	FrameEnd   = 0x03 // last byte of every frame

	FrameHeaderSize  = 2 // start byte + length byte
	FrameTrailerSize = 3 // CRC16 (big-endian) + end byte

	// Smallest legal frame: header, the header word, trailer.
	FrameLengthMin = FrameHeaderSize + WordSize + FrameTrailerSize

	// Largest legal frame. The length field is a single byte; this
	// comfortably fits a full block write plus its header word.
	FrameLengthMax = 255
)

// Command identifiers (host -> device)
const (
	CmdConnect    = 0x11
	CmdWriteBlock = 0x12
	CmdEOF        = 0x13
	CmdReadBlock  = 0x14
	CmdComplete   = 0x15
)

// RspCommandError is the response identifier for a rejected command.
// A successful command is acknowledged with a frame carrying the
// command's own identifier.
const RspCommandError = 0xf1

// Message is one decoded protocol frame: an identifier and its
// argument words. Word 0 of the wire payload (the header word) is
// consumed during decoding and is not part of Args.
type Message struct {
	ID   uint8
	Args []uint32
}

// headerWord packs the message identifier and argument count into the
// leading payload word.
func headerWord(id uint8, argc int) uint32 {
	return uint32(id) | uint32(argc)<<8
}

// splitHeader is the inverse of headerWord.
func splitHeader(w uint32) (id uint8, argc int) {
	return uint8(w), int(w >> 8 & 0xFF)
}
