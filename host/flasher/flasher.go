// Package flasher implements the host side of the bootloader
// protocol: it connects to a device in update mode, streams a firmware
// image block by block, verifies it and finalizes the session.
package flasher

import (
	"errors"
	"fmt"
	"io"
	"time"

	"blockboot/host/image"
	"blockboot/protocol"
)

var (
	ErrNack         = errors.New("flasher: device rejected the command")
	ErrBadResponse  = errors.New("flasher: unexpected response from device")
	ErrTimeout      = errors.New("flasher: timed out waiting for device")
	ErrNotConnected = errors.New("flasher: not connected")
	ErrImageBounds  = errors.New("flasher: image starts below the application region")
	ErrVerifyFailed = errors.New("flasher: flash contents do not match the image")
)

// DefaultTimeout is how long one command may wait for its
// acknowledgment. Page writes happen inside the device's command
// handling, so this must cover a flash page program.
const DefaultTimeout = 2 * time.Second

// Progress reports flashing progress to an optional callback.
type Progress struct {
	// Phase is "writing" or "verifying".
	Phase string

	// Block is the 0-based index of the block just transferred;
	// TotalBlocks is the image's block count.
	Block       int
	TotalBlocks int
}

// ProgressFunc receives Progress updates. It runs on the flashing
// goroutine and should return quickly.
type ProgressFunc func(Progress)

// Option configures a Flasher.
type Option func(*Flasher)

// WithTimeout overrides the per-command acknowledgment timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Flasher) { f.timeout = d }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Flasher) { f.progress = fn }
}

// Info is what the device reports in its CONNECT acknowledgment.
type Info struct {
	ProtocolVersion  uint32
	ApplicationStart uint32
	BlockSize        uint32
	MCU              string
}

// Flasher drives one update session over a byte port.
type Flasher struct {
	port     io.ReadWriter
	timeout  time.Duration
	progress ProgressFunc

	info      Info
	connected bool

	rx      *protocol.FifoBuffer
	pending []protocol.Message
	dec     *protocol.Decoder
	out     *protocol.ScratchOutput
}

// New creates a Flasher over port. The port's reads may time out with
// (0, nil) or io.EOF; the flasher keeps polling until its own command
// timeout expires.
func New(port io.ReadWriter, opts ...Option) *Flasher {
	f := &Flasher{
		port:    port,
		timeout: DefaultTimeout,
		rx:      protocol.NewFifoBuffer(4096),
		out:     protocol.NewScratchOutput(),
	}
	f.dec = protocol.NewDecoder(func(msg protocol.Message) {
		f.pending = append(f.pending, msg)
	})
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect performs the CONNECT handshake and records the device's
// transfer parameters.
func (f *Flasher) Connect() (Info, error) {
	ack, err := f.command(protocol.CmdConnect, nil)
	if err != nil {
		return Info{}, err
	}
	if len(ack.Args) < 3 {
		return Info{}, fmt.Errorf("%w: short CONNECT ack (%d words)", ErrBadResponse, len(ack.Args))
	}

	f.info = Info{
		ProtocolVersion:  ack.Args[0],
		ApplicationStart: ack.Args[1],
		BlockSize:        ack.Args[2],
		MCU:              trimString(protocol.WordsToBytes(ack.Args[3:])),
	}
	if f.info.BlockSize == 0 || f.info.BlockSize%protocol.WordSize != 0 {
		return Info{}, fmt.Errorf("%w: bad block size %d", ErrBadResponse, f.info.BlockSize)
	}
	f.connected = true
	return f.info, nil
}

// Info returns the parameters learned at Connect.
func (f *Flasher) Info() Info {
	return f.info
}

// WriteImage streams the image to the device. The image is padded to
// a block boundary with the erased pattern first.
func (f *Flasher) WriteImage(img *image.Image) error {
	if !f.connected {
		return ErrNotConnected
	}
	if img.Start < f.info.ApplicationStart {
		return ErrImageBounds
	}

	img.PadTo(f.info.BlockSize)
	total := img.NumBlocks(f.info.BlockSize)

	for i := 0; i < total; i++ {
		addr, payload := img.Block(i, f.info.BlockSize)
		args := append([]uint32{addr}, protocol.BytesToWords(payload)...)

		ack, err := f.command(protocol.CmdWriteBlock, args)
		if err != nil {
			return fmt.Errorf("block %d at %08x: %w", i, addr, err)
		}
		if len(ack.Args) != 1 || ack.Args[0] != addr {
			return fmt.Errorf("%w: WRITE_BLOCK echoed %v, want %08x", ErrBadResponse, ack.Args, addr)
		}
		f.report("writing", i, total)
	}
	return nil
}

// Verify reads the image range back and compares it. Call it after
// Commit so trailing partial pages have been committed.
func (f *Flasher) Verify(img *image.Image) error {
	if !f.connected {
		return ErrNotConnected
	}

	img.PadTo(f.info.BlockSize)
	total := img.NumBlocks(f.info.BlockSize)

	for i := 0; i < total; i++ {
		addr, payload := img.Block(i, f.info.BlockSize)

		ack, err := f.command(protocol.CmdReadBlock, []uint32{addr})
		if err != nil {
			return fmt.Errorf("readback at %08x: %w", addr, err)
		}
		if len(ack.Args) < 1 || ack.Args[0] != addr {
			return fmt.Errorf("%w: READ_BLOCK echoed %v, want %08x", ErrBadResponse, ack.Args, addr)
		}

		got := protocol.WordsToBytes(ack.Args[1:])
		if len(got) < len(payload) {
			return fmt.Errorf("%w: short READ_BLOCK payload", ErrBadResponse)
		}
		for j := range payload {
			if got[j] != payload[j] {
				return fmt.Errorf("%w: at %08x", ErrVerifyFailed, addr+uint32(j))
			}
		}
		f.report("verifying", i, total)
	}
	return nil
}

// Commit ends the block transfer: EOF flushes any partial page on the
// device and reports how many pages were written. The session stays
// open so the image can still be verified.
func (f *Flasher) Commit() (pages uint32, err error) {
	if !f.connected {
		return 0, ErrNotConnected
	}

	ack, err := f.command(protocol.CmdEOF, nil)
	if err != nil {
		return 0, err
	}
	if len(ack.Args) != 1 {
		return 0, fmt.Errorf("%w: EOF ack %v", ErrBadResponse, ack.Args)
	}
	return ack.Args[0], nil
}

// Complete closes the session. The device resets once the COMPLETE
// acknowledgment has drained, so no further commands are possible.
func (f *Flasher) Complete() error {
	if !f.connected {
		return ErrNotConnected
	}
	if _, err := f.command(protocol.CmdComplete, nil); err != nil {
		return err
	}
	f.connected = false
	return nil
}

// command sends one framed command and waits for its response. The
// device answers every command with either an ack carrying the
// command's id or a command-error frame.
func (f *Flasher) command(id uint8, args []uint32) (protocol.Message, error) {
	f.out.Reset()
	protocol.EncodeFrame(f.out, protocol.Message{ID: id, Args: args})
	if _, err := f.port.Write(f.out.Result()); err != nil {
		return protocol.Message{}, fmt.Errorf("flasher: write: %w", err)
	}

	deadline := time.Now().Add(f.timeout)
	for {
		if len(f.pending) > 0 {
			msg := f.pending[0]
			f.pending = f.pending[1:]
			switch msg.ID {
			case id:
				return msg, nil
			case protocol.RspCommandError:
				return protocol.Message{}, ErrNack
			default:
				return protocol.Message{}, fmt.Errorf("%w: id %02x, want %02x", ErrBadResponse, msg.ID, id)
			}
		}

		if time.Now().After(deadline) {
			return protocol.Message{}, ErrTimeout
		}

		buf := make([]byte, 256)
		n, err := f.port.Read(buf)
		if err != nil && err != io.EOF {
			return protocol.Message{}, fmt.Errorf("flasher: read: %w", err)
		}
		if n > 0 {
			f.rx.Write(buf[:n])
			f.dec.Receive(f.rx)
		}
	}
}

func (f *Flasher) report(phase string, block, total int) {
	if f.progress != nil {
		f.progress(Progress{Phase: phase, Block: block, TotalBlocks: total})
	}
}

// trimString cuts the zero padding off a word-encoded string.
func trimString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
