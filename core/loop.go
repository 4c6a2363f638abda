package core

import "errors"

var (
	ErrMissingSignal = errors.New("core: boot signal store not set")
	ErrMissingDelay  = errors.New("core: delay function not set")
)

// Hardware collects the board collaborators the bootloader drives.
// JumpToApp transfers control to the installed application and does
// not return; GPIO may be nil when the boot button is disabled.
type Hardware struct {
	Transport Transport
	Flash     FlashDriver
	GPIO      GPIO
	Signal    BootSignal
	Delay     DelayFunc
	JumpToApp func()
}

// Bootloader ties the entry decision, the command session and the
// cooperative run loop together.
type Bootloader struct {
	cfg   *Config
	hw    Hardware
	sched *Scheduler
	fault error
}

// NewBootloader validates the configuration and collaborators.
func NewBootloader(cfg *Config, hw Hardware) (*Bootloader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Transport == nil {
		return nil, ErrMissingTransport
	}
	if hw.Flash == nil {
		return nil, ErrMissingFlash
	}
	if hw.Signal == nil {
		return nil, ErrMissingSignal
	}
	if hw.Delay == nil {
		return nil, ErrMissingDelay
	}

	return &Bootloader{
		cfg:   cfg,
		hw:    hw,
		sched: NewScheduler(),
	}, nil
}

// RegisterTask exposes the scheduler so board code can add its own
// periodic work (transport pumping, watchdog feeding) to the update
// loop.
func (b *Bootloader) RegisterTask(fn TaskFunc) {
	b.sched.RegisterTask(fn)
}

// RegisterInit adds board init work to run when the update loop
// starts.
func (b *Bootloader) RegisterInit(fn func()) {
	b.sched.RegisterInit(fn)
}

// Main is the reset entry point. It either runs an update session to
// completion and resets the device, or arms the double-reset window
// and jumps to the application.
func (b *Bootloader) Main() error {
	entry := NewEntryDecision(b.cfg, b.hw.Flash, b.hw.GPIO, b.hw.Signal, b.hw.Delay)

	if entry.ShouldEnterUpdateMode() {
		return b.runUpdateSession()
	}

	entry.ArmDoubleReset()
	b.hw.JumpToApp()
	return nil
}

// runUpdateSession drives the scheduler until the session reports
// complete and the transport has drained, then resets the device. The
// final acknowledgment must be on the wire before the reset; breaking
// on Complete alone would cut it off.
func (b *Bootloader) runUpdateSession() error {
	session, err := NewSession(b.cfg, b.hw.Transport, b.hw.Flash)
	if err != nil {
		return err
	}

	b.sched.RegisterTask(b.pollTask(session))
	b.sched.Init()

	for {
		b.sched.RunPending()
		if session.Complete() && b.hw.Transport.TxEmpty() {
			break
		}
	}

	b.hw.Delay(ResetSettleDelay)
	b.hw.Transport.RebootDevice()
	return b.fault
}

// pollTask drains the transport's inbound queue into the session, one
// scheduler pass at a time. A driver failure is recorded and the
// faulted command stays unacknowledged; the session keeps running so
// the host times out rather than seeing a bogus ack.
func (b *Bootloader) pollTask(session *Session) TaskFunc {
	return func() {
		for {
			msg, ok := b.hw.Transport.Receive()
			if !ok {
				return
			}
			if err := session.HandleMessage(msg); err != nil && b.fault == nil {
				b.fault = err
			}
		}
	}
}
