//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"
)

// xipBase is where on-board flash is memory mapped; the protocol
// addresses blocks by absolute XIP address.
const xipBase = 0x10000000

var errFlashRange = errors.New("flash address outside the data region")

// mcuFlash drives the on-board QSPI flash through the machine block
// device. One protocol page is one erase block.
type mcuFlash struct {
	pageSize uint32
}

func newMCUFlash() *mcuFlash {
	return &mcuFlash{pageSize: uint32(machine.Flash.EraseBlockSize())}
}

func (f *mcuFlash) PageSize() uint32 {
	return f.pageSize
}

func (f *mcuFlash) WritePage(addr uint32, data []byte) error {
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	block := off / int64(f.pageSize)
	if err := machine.Flash.EraseBlocks(block, 1); err != nil {
		return err
	}
	_, err = machine.Flash.WriteAt(data, off)
	return err
}

func (f *mcuFlash) ReadBlock(addr uint32, out []byte) error {
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	_, err = machine.Flash.ReadAt(out, off)
	return err
}

// Complete: the application becomes valid simply by being present;
// nothing to mark.
func (f *mcuFlash) Complete() error {
	return nil
}

// offset translates an absolute XIP address to a block-device offset.
func (f *mcuFlash) offset(addr uint32) (int64, error) {
	if addr < xipBase {
		return 0, errFlashRange
	}
	return int64(addr) - int64(machine.FlashDataStart()), nil
}
