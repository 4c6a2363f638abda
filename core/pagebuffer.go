package core

// PageBuffer stages inbound blocks until they tile one full flash
// page, then commits the page in a single driver write. Blocks are
// assumed to arrive packed and in increasing order within a page; the
// buffer validates nothing beyond the offset arithmetic.
type PageBuffer struct {
	flash FlashDriver

	appStart  uint32
	blockSize uint32
	pageSize  uint32

	page         []byte
	lastPageAddr uint32
	pending      bool
}

// NewPageBuffer creates the staging buffer for one update session. The
// driver's page size is checked against the configured maximum and
// must be a multiple of the block size so blocks tile pages exactly.
func NewPageBuffer(flash FlashDriver, cfg *Config) (*PageBuffer, error) {
	pageSize := flash.PageSize()
	if pageSize == 0 || pageSize > cfg.MaxPageSize || pageSize%cfg.BlockSize != 0 {
		return nil, ErrBadPageSize
	}

	b := &PageBuffer{
		flash:     flash,
		appStart:  cfg.ApplicationStart,
		blockSize: cfg.BlockSize,
		pageSize:  pageSize,
		page:      make([]byte, pageSize),
		// Start one page below the application region so a
		// trailing flush of the very first page lands on it.
		lastPageAddr: cfg.ApplicationStart - pageSize,
	}
	b.erase()
	return b, nil
}

// AcceptBlock copies one block into the staging buffer. If the block
// completes the page, the page is flushed to flash before returning.
// An address below the application region is rejected with no
// mutation.
func (b *PageBuffer) AcceptBlock(addr uint32, payload []byte) error {
	if addr < b.appStart {
		return ErrBelowAppStart
	}

	offset := addr % b.pageSize
	copy(b.page[offset:], payload)
	b.pending = true

	if offset+b.blockSize == b.pageSize {
		return b.flush(addr - offset)
	}
	return nil
}

// Finalize flushes a trailing partially-filled page and tells the
// driver programming is done. It returns the total number of pages
// written since the session began.
func (b *PageBuffer) Finalize() (pages uint32, err error) {
	if b.pending {
		if err := b.flush(b.lastPageAddr + b.pageSize); err != nil {
			return 0, err
		}
	}
	if err := b.flash.Complete(); err != nil {
		return 0, err
	}
	return (b.lastPageAddr-b.appStart)/b.pageSize + 1, nil
}

// Pending reports whether the buffer holds data not yet written to
// flash.
func (b *PageBuffer) Pending() bool {
	return b.pending
}

// LastPageAddr returns the address of the most recently flushed page.
func (b *PageBuffer) LastPageAddr() uint32 {
	return b.lastPageAddr
}

// flush writes the whole staged page at pageAddr and resets the
// buffer to the erased pattern. No partial-page state survives it.
func (b *PageBuffer) flush(pageAddr uint32) error {
	if err := b.flash.WritePage(pageAddr, b.page); err != nil {
		return err
	}
	b.erase()
	b.lastPageAddr = pageAddr
	b.pending = false
	return nil
}

func (b *PageBuffer) erase() {
	for i := range b.page {
		b.page[i] = ErasedByte
	}
}
