package core

import (
	"testing"
)

func newTestEntry(cfg *Config, flash *mockFlash, gpio *mockGPIO, signal *mockSignal, delay *recordDelay) *EntryDecision {
	return NewEntryDecision(cfg, flash, gpio, signal, delay.fn())
}

// flashWithApp returns a mock flash whose application region holds
// non-erased data.
func flashWithApp(cfg *Config) *mockFlash {
	flash := newMockFlash(256)
	flash.mem[cfg.ApplicationStart] = 0x20 // initial stack pointer, anything non-FF
	return flash
}

func TestEntryRequestSignature(t *testing.T) {
	cfg := testConfig()
	signal := &mockSignal{code: RequestSignature}
	entry := newTestEntry(cfg, flashWithApp(cfg), &mockGPIO{}, signal, &recordDelay{})

	if !entry.ShouldEnterUpdateMode() {
		t.Fatalf("Request signature did not select update mode")
	}
	if signal.code != 0 {
		t.Errorf("Signature not cleared after entry: %016x", signal.code)
	}

	// The same boot must not re-enter via the consumed signature.
	if entry.ShouldEnterUpdateMode() {
		t.Errorf("Cleared signature still selects update mode")
	}
}

func TestEntryWrongSignature(t *testing.T) {
	cfg := testConfig()
	signal := &mockSignal{code: 0x1234}
	entry := newTestEntry(cfg, flashWithApp(cfg), &mockGPIO{}, signal, &recordDelay{})

	if entry.ShouldEnterUpdateMode() {
		t.Errorf("Arbitrary bootup code selected update mode")
	}
}

func TestEntryNoApplication(t *testing.T) {
	cfg := testConfig()
	// Fully erased flash: nothing has been programmed.
	entry := newTestEntry(cfg, newMockFlash(256), &mockGPIO{}, &mockSignal{}, &recordDelay{})

	if !entry.ShouldEnterUpdateMode() {
		t.Errorf("Erased application region did not select update mode")
	}
}

func TestEntryApplicationPresent(t *testing.T) {
	cfg := testConfig()

	// A single non-erased byte anywhere in the first block counts as
	// an installed application.
	flash := newMockFlash(256)
	flash.mem[cfg.ApplicationStart+cfg.BlockSize-1] = 0x00
	entry := newTestEntry(cfg, flash, &mockGPIO{}, &mockSignal{}, &recordDelay{})

	if entry.ShouldEnterUpdateMode() {
		t.Errorf("Installed application still selected update mode")
	}
}

func TestEntryButton(t *testing.T) {
	cfg := testConfig()
	cfg.EnableButton = true
	cfg.ButtonPin = 23
	cfg.ButtonPressed = false // active low

	gpio := &mockGPIO{level: false}
	delay := &recordDelay{}
	entry := newTestEntry(cfg, flashWithApp(cfg), gpio, &mockSignal{}, delay)

	if !entry.ShouldEnterUpdateMode() {
		t.Fatalf("Pressed button did not select update mode")
	}
	if gpio.reads != 1 {
		t.Errorf("Button sampled %d times, want 1", gpio.reads)
	}
	// The pin settles before it is sampled.
	if len(delay.delays) != 1 || delay.delays[0] != ButtonSettleDelay {
		t.Errorf("Settle delay %v, want [%v]", delay.delays, ButtonSettleDelay)
	}
}

func TestEntryButtonNotPressed(t *testing.T) {
	cfg := testConfig()
	cfg.EnableButton = true
	cfg.ButtonPressed = true // active high

	gpio := &mockGPIO{level: false}
	entry := newTestEntry(cfg, flashWithApp(cfg), gpio, &mockSignal{}, &recordDelay{})

	if entry.ShouldEnterUpdateMode() {
		t.Errorf("Released button selected update mode")
	}
}

func TestEntryButtonDisabled(t *testing.T) {
	cfg := testConfig()

	gpio := &mockGPIO{level: true}
	entry := newTestEntry(cfg, flashWithApp(cfg), gpio, &mockSignal{}, &recordDelay{})

	if entry.ShouldEnterUpdateMode() {
		t.Errorf("Disabled button still selected update mode")
	}
	if gpio.reads != 0 {
		t.Errorf("Disabled button was sampled %d times", gpio.reads)
	}
}

func TestArmDoubleReset(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDoubleReset = true

	signal := &mockSignal{}
	delay := &recordDelay{}
	entry := newTestEntry(cfg, flashWithApp(cfg), &mockGPIO{}, signal, delay)

	entry.ArmDoubleReset()

	// Signature is written, held for the window, then cleared. A
	// physical reset inside the window would leave it set for the
	// next boot; no actual reset detection happens here.
	if len(signal.sets) != 2 || signal.sets[0] != RequestSignature || signal.sets[1] != 0 {
		t.Fatalf("Signal writes %v, want [signature, 0]", signal.sets)
	}
	if len(delay.delays) != 1 || delay.delays[0] != DoubleResetWindow {
		t.Errorf("Window delay %v, want [%v]", delay.delays, DoubleResetWindow)
	}
	if signal.code != 0 {
		t.Errorf("Signature left armed after the window")
	}
}

func TestArmDoubleResetDisabled(t *testing.T) {
	cfg := testConfig()

	signal := &mockSignal{}
	entry := newTestEntry(cfg, flashWithApp(cfg), &mockGPIO{}, signal, &recordDelay{})

	entry.ArmDoubleReset()
	if len(signal.sets) != 0 {
		t.Errorf("Disabled double reset touched the signal store: %v", signal.sets)
	}
}
