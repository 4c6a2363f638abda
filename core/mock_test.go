package core

import (
	"fmt"
	"time"

	"blockboot/protocol"
)

// eventLog records the observable side effects of a test scenario in
// order, so ordering guarantees (ack before reset, flush after acks)
// can be asserted.
type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type flashWrite struct {
	addr uint32
	data []byte
}

// mockFlash is an in-memory FlashDriver. Reads come from mem and
// default to the erased pattern.
type mockFlash struct {
	pageSize  uint32
	mem       map[uint32]byte
	writes    []flashWrite
	completed int
	failWrite error
	log       *eventLog
}

func newMockFlash(pageSize uint32) *mockFlash {
	return &mockFlash{
		pageSize: pageSize,
		mem:      make(map[uint32]byte),
	}
}

func (f *mockFlash) PageSize() uint32 { return f.pageSize }

func (f *mockFlash) WritePage(addr uint32, data []byte) error {
	if f.failWrite != nil {
		return f.failWrite
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, flashWrite{addr: addr, data: cp})
	for i, b := range cp {
		f.mem[addr+uint32(i)] = b
	}
	if f.log != nil {
		f.log.add("write@%08x", addr)
	}
	return nil
}

func (f *mockFlash) ReadBlock(addr uint32, out []byte) error {
	for i := range out {
		if b, ok := f.mem[addr+uint32(i)]; ok {
			out[i] = b
		} else {
			out[i] = ErasedByte
		}
	}
	return nil
}

func (f *mockFlash) Complete() error {
	f.completed++
	return nil
}

// mockTransport records sent messages and plays back a scripted
// inbound queue. txBusy delays TxEmpty for that many polls after the
// last send.
type mockTransport struct {
	inbound  []protocol.Message
	sent     []protocol.Message
	txBusy   int
	rebooted int
	log      *eventLog
}

func (t *mockTransport) Send(msg protocol.Message) {
	t.sent = append(t.sent, msg)
	if t.log != nil {
		t.log.add("send:%02x", msg.ID)
	}
}

func (t *mockTransport) Receive() (protocol.Message, bool) {
	if len(t.inbound) == 0 {
		return protocol.Message{}, false
	}
	msg := t.inbound[0]
	t.inbound = t.inbound[1:]
	return msg, true
}

func (t *mockTransport) TxEmpty() bool {
	if t.txBusy > 0 {
		t.txBusy--
		if t.log != nil {
			t.log.add("txbusy")
		}
		return false
	}
	return true
}

func (t *mockTransport) RebootDevice() {
	t.rebooted++
	if t.log != nil {
		t.log.add("reboot")
	}
}

// mockGPIO returns a fixed level for every pin.
type mockGPIO struct {
	level bool
	reads int
}

func (g *mockGPIO) ReadPin(pin uint8) bool {
	g.reads++
	return g.level
}

// mockSignal is a boot signal store recording every Set.
type mockSignal struct {
	code uint64
	sets []uint64
}

func (s *mockSignal) Get() uint64 { return s.code }

func (s *mockSignal) Set(code uint64) {
	s.code = code
	s.sets = append(s.sets, code)
}

// recordDelay counts delays instead of sleeping.
type recordDelay struct {
	delays []time.Duration
	log    *eventLog
}

func (d *recordDelay) fn() DelayFunc {
	return func(dur time.Duration) {
		d.delays = append(d.delays, dur)
		if d.log != nil {
			d.log.add("delay:%s", dur)
		}
	}
}

func testConfig() *Config {
	return &Config{
		ApplicationStart: 0x08000000,
		BlockSize:        64,
		MaxPageSize:      4096,
		MCU:              "stm32f103",
	}
}

// patternBlock builds a block-sized payload filled with a recognizable
// per-block byte pattern.
func patternBlock(size uint32, seed byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

// writeBlockMsg builds a WRITE_BLOCK message for addr carrying payload.
func writeBlockMsg(addr uint32, payload []byte) protocol.Message {
	args := append([]uint32{addr}, protocol.BytesToWords(payload)...)
	return protocol.Message{ID: protocol.CmdWriteBlock, Args: args}
}
