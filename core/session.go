package core

import "blockboot/protocol"

// Session is the update-session command handler. It owns the page
// buffer and the transfer state; every inbound message produces
// exactly one response, emitted in processing order.
type Session struct {
	cfg   *Config
	tr    Transport
	flash FlashDriver
	buf   *PageBuffer

	inTransfer bool
	complete   bool
}

// NewSession creates the handler for one update session.
func NewSession(cfg *Config, tr Transport, flash FlashDriver) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, ErrMissingTransport
	}
	if flash == nil {
		return nil, ErrMissingFlash
	}

	buf, err := NewPageBuffer(flash, cfg)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:   cfg,
		tr:    tr,
		flash: flash,
		buf:   buf,
	}, nil
}

// Complete reports whether the COMPLETE command has been acknowledged.
// The run loop exits once this is true and the transport has drained.
func (s *Session) Complete() bool {
	return s.complete
}

// InTransfer reports whether a block transfer is in progress.
func (s *Session) InTransfer() bool {
	return s.inTransfer
}

// HandleMessage dispatches one inbound command. Protocol-level
// rejections are answered with a command-error response and return
// nil; a non-nil error means a driver failure, which leaves the
// command unacknowledged.
func (s *Session) HandleMessage(msg protocol.Message) error {
	switch msg.ID {
	case protocol.CmdConnect:
		s.handleConnect()
	case protocol.CmdReadBlock:
		return s.handleReadBlock(msg.Args)
	case protocol.CmdWriteBlock:
		return s.handleWriteBlock(msg.Args)
	case protocol.CmdEOF:
		return s.handleEOF()
	case protocol.CmdComplete:
		s.handleComplete()
	default:
		s.respondError()
	}
	return nil
}

// handleConnect reports the protocol version and the build-time
// transfer parameters. It is valid in any state and mutates nothing.
func (s *Session) handleConnect() {
	args := []uint32{
		protocol.Version,
		s.cfg.ApplicationStart,
		s.cfg.BlockSize,
	}
	args = append(args, protocol.StringWords(s.cfg.MCU)...)
	s.ack(protocol.CmdConnect, args)
}

func (s *Session) handleReadBlock(args []uint32) error {
	s.inTransfer = true
	if len(args) != 1 {
		s.respondError()
		return nil
	}

	addr := args[0]
	block := make([]byte, s.cfg.BlockSize)
	if err := s.flash.ReadBlock(addr, block); err != nil {
		return err
	}

	out := append([]uint32{addr}, protocol.BytesToWords(block)...)
	s.ack(protocol.CmdReadBlock, out)
	return nil
}

func (s *Session) handleWriteBlock(args []uint32) error {
	s.inTransfer = true
	if len(args) != s.cfg.blockWords() {
		s.respondError()
		return nil
	}

	addr := args[0]
	err := s.buf.AcceptBlock(addr, protocol.WordsToBytes(args[1:]))
	if err == ErrBelowAppStart {
		s.respondError()
		return nil
	}
	if err != nil {
		return err
	}

	s.ack(protocol.CmdWriteBlock, []uint32{addr})
	return nil
}

func (s *Session) handleEOF() error {
	s.inTransfer = false
	pages, err := s.buf.Finalize()
	if err != nil {
		return err
	}
	s.ack(protocol.CmdEOF, []uint32{pages})
	return nil
}

func (s *Session) handleComplete() {
	s.ack(protocol.CmdComplete, nil)
	s.complete = true
}

func (s *Session) ack(id uint8, args []uint32) {
	s.tr.Send(protocol.Message{ID: id, Args: args})
}

func (s *Session) respondError() {
	s.tr.Send(protocol.Message{ID: protocol.RspCommandError})
}
