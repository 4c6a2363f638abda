package core

// EntryDecision evaluates the boot-time signals that select between
// running an update session and jumping to the installed application.
type EntryDecision struct {
	cfg    *Config
	flash  FlashDriver
	gpio   GPIO
	signal BootSignal
	delay  DelayFunc
}

// NewEntryDecision wires the decision logic to its input signals.
func NewEntryDecision(cfg *Config, flash FlashDriver, gpio GPIO, signal BootSignal, delay DelayFunc) *EntryDecision {
	return &EntryDecision{
		cfg:    cfg,
		flash:  flash,
		gpio:   gpio,
		signal: signal,
		delay:  delay,
	}
}

// ShouldEnterUpdateMode decides, once per boot, whether to run the
// updater. It answers true when the persisted bootup code carries the
// request signature, when no application is present, or when the boot
// button reads pressed. The bootup code is cleared on entry so the
// next normal boot does not re-enter update mode.
func (e *EntryDecision) ShouldEnterUpdateMode() bool {
	if e.signal.Get() == RequestSignature ||
		!e.applicationPresent() ||
		e.buttonPressed() {
		e.signal.Set(0)
		return true
	}
	return false
}

// ArmDoubleReset gives a second physical reset a window to force
// update mode: the request signature is written, held for the window,
// then cleared. A reset inside the window leaves the signature set, so
// the next boot takes the persisted-code path. There is no detection
// of whether a reset actually happened; the window is the mechanism.
func (e *EntryDecision) ArmDoubleReset() {
	if !e.cfg.EnableDoubleReset {
		return
	}
	e.signal.Set(RequestSignature)
	e.delay(DoubleResetWindow)
	e.signal.Set(0)
}

// applicationPresent reads the first block of the application region;
// all-erased contents mean nothing has been flashed.
func (e *EntryDecision) applicationPresent() bool {
	block := make([]byte, e.cfg.BlockSize)
	if err := e.flash.ReadBlock(e.cfg.ApplicationStart, block); err != nil {
		// Unreadable application region: treat as absent.
		return false
	}
	for _, b := range block {
		if b != ErasedByte {
			return true
		}
	}
	return false
}

func (e *EntryDecision) buttonPressed() bool {
	if !e.cfg.EnableButton {
		return false
	}
	e.delay(ButtonSettleDelay)
	return e.gpio.ReadPin(e.cfg.ButtonPin) == e.cfg.ButtonPressed
}
