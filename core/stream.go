package core

import "blockboot/protocol"

// Link is the raw byte channel a StreamTransport runs over. Write
// enqueues outbound bytes; TxEmpty reports whether they have actually
// been transmitted, not merely queued.
type Link interface {
	Write(p []byte) (int, error)
	TxEmpty() bool
	Reboot()
}

// StreamTransport adapts a byte link to the message-level Transport
// interface: inbound bytes are buffered and framed by the protocol
// decoder, outbound messages are encoded and written through.
//
// Board code pumps Feed from a receive goroutine while Receive runs
// on the main loop. There is no locking: that split is safe only
// under TinyGo's cooperative scheduler, where goroutines yield at
// known points. Preemptive callers must serialize Feed and Receive
// themselves.
type StreamTransport struct {
	link Link
	rx   *protocol.FifoBuffer
	dec  *protocol.Decoder
	out  *protocol.ScratchOutput

	queue []protocol.Message
}

// NewStreamTransport creates a transport over link with an inbound
// buffer of rxSize bytes.
func NewStreamTransport(link Link, rxSize int) *StreamTransport {
	t := &StreamTransport{
		link: link,
		rx:   protocol.NewFifoBuffer(rxSize),
		out:  protocol.NewScratchOutput(),
	}
	t.dec = protocol.NewDecoder(func(msg protocol.Message) {
		t.queue = append(t.queue, msg)
	})
	return t
}

// Feed stores raw inbound bytes for the next Receive pass. Bytes that
// do not fit are dropped; the decoder resynchronizes on the next
// frame.
func (t *StreamTransport) Feed(p []byte) {
	t.rx.Write(p)
}

// Receive returns the next decoded message, running the frame decoder
// over any buffered bytes first.
func (t *StreamTransport) Receive() (protocol.Message, bool) {
	if len(t.queue) == 0 {
		t.dec.Receive(t.rx)
	}
	if len(t.queue) == 0 {
		return protocol.Message{}, false
	}
	msg := t.queue[0]
	t.queue = t.queue[1:]
	return msg, true
}

// Send encodes msg and writes the frame to the link.
func (t *StreamTransport) Send(msg protocol.Message) {
	t.out.Reset()
	protocol.EncodeFrame(t.out, msg)

	frame := t.out.Result()
	for len(frame) > 0 {
		n, err := t.link.Write(frame)
		if err != nil || n == 0 {
			// Link failure: the frame is lost, the host
			// will time out and retry the command.
			return
		}
		frame = frame[n:]
	}
}

// TxEmpty reports whether all sent frames have left the device.
func (t *StreamTransport) TxEmpty() bool {
	return t.link.TxEmpty()
}

// RebootDevice performs a full device reset through the link driver.
func (t *StreamTransport) RebootDevice() {
	t.link.Reboot()
}
