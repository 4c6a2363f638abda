package protocol

// Positions within a frame, relative to the start byte.
const (
	framePositionStart  = 0
	framePositionLength = 1
	frameTrailerCRC     = 3 // offset back from frame end to CRC high byte
	frameTrailerEnd     = 1 // offset back from frame end to the end byte
)

// EncodeFrame appends one complete frame for msg to the output buffer:
// start byte, length, header word, argument words, CRC16 and end byte.
// The CRC covers everything from the start byte through the last
// argument word.
func EncodeFrame(out OutputBuffer, msg Message) {
	cursor := out.CurPosition()

	// Start byte and length placeholder; the length is backfilled
	// once the payload size is known.
	out.Output([]byte{FrameStart, 0})

	PutWord(out, headerWord(msg.ID, len(msg.Args)))
	for _, w := range msg.Args {
		PutWord(out, w)
	}

	total := len(out.DataSince(cursor)) + FrameTrailerSize
	out.Update(cursor+framePositionLength, uint8(total))

	crc := CRC16(out.DataSince(cursor))
	out.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		FrameEnd,
	})
}

// MessageSink receives decoded messages from a Decoder.
type MessageSink func(Message)

// Decoder extracts frames from a raw inbound byte stream. Malformed
// input (bad start byte, length, CRC or trailer) drops the decoder out
// of sync; it then discards everything up to and including the next
// frame end byte, so parsing resumes on a frame boundary.
type Decoder struct {
	synced bool
	sink   MessageSink
}

// NewDecoder creates a Decoder delivering decoded messages to sink.
func NewDecoder(sink MessageSink) *Decoder {
	return &Decoder{synced: true, sink: sink}
}

// Receive consumes as many complete frames as the input holds and
// delivers each to the sink. Partial frames are left in the buffer for
// the next call.
func (d *Decoder) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synced {
			// Skip to just past the next frame end byte.
			endPos := -1
			for i, b := range data {
				if b == FrameEnd {
					endPos = i
					break
				}
			}
			if endPos < 0 {
				data = nil
				break
			}
			data = data[endPos+1:]
			d.synced = true
			continue
		}

		if data[framePositionStart] != FrameStart {
			d.synced = false
			continue
		}

		if len(data) < FrameLengthMin {
			break
		}

		msgLen := int(data[framePositionLength])
		if msgLen < FrameLengthMin || msgLen > FrameLengthMax ||
			(msgLen-FrameHeaderSize-FrameTrailerSize)%WordSize != 0 {
			d.synced = false
			continue
		}

		// Wait for the full frame to arrive.
		if len(data) < msgLen {
			break
		}

		if data[msgLen-frameTrailerEnd] != FrameEnd {
			d.synced = false
			continue
		}

		frameCRC := uint16(data[msgLen-frameTrailerCRC])<<8 |
			uint16(data[msgLen-frameTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-FrameTrailerSize]) {
			d.synced = false
			continue
		}

		words := BytesToWords(data[FrameHeaderSize : msgLen-FrameTrailerSize])
		data = data[msgLen:]

		id, argc := splitHeader(words[0])
		if argc != len(words)-1 {
			// Header word disagrees with the frame length. The
			// frame boundary is already known, so only this frame
			// is dropped; sync is kept.
			continue
		}

		if d.sink != nil {
			d.sink(Message{ID: id, Args: words[1:]})
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}
