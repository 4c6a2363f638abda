//go:build tinygo

// Package spiflash adapts an external SPI NOR flash to the bootloader
// flash driver, for boards that keep the application image off-chip.
package spiflash

import (
	"errors"

	"tinygo.org/x/drivers/flash"
)

var ErrRange = errors.New("spiflash: address below the mapped base")

// Driver maps a window of the SPI flash at base into the bootloader's
// address space. One protocol page is one erase block of the device.
type Driver struct {
	dev      *flash.Device
	base     uint32
	pageSize uint32
}

// New wraps an initialized flash device. base is the absolute address
// the bootloader uses for offset 0 of the device.
func New(dev *flash.Device, base uint32) *Driver {
	return &Driver{
		dev:      dev,
		base:     base,
		pageSize: uint32(dev.EraseBlockSize()),
	}
}

func (d *Driver) PageSize() uint32 {
	return d.pageSize
}

func (d *Driver) WritePage(addr uint32, data []byte) error {
	off, err := d.offset(addr)
	if err != nil {
		return err
	}
	if err := d.dev.EraseBlocks(off/int64(d.pageSize), 1); err != nil {
		return err
	}
	_, err = d.dev.WriteAt(data, off)
	return err
}

func (d *Driver) ReadBlock(addr uint32, out []byte) error {
	off, err := d.offset(addr)
	if err != nil {
		return err
	}
	_, err = d.dev.ReadAt(out, off)
	return err
}

// Complete: SPI NOR has no image-valid marker; presence is validity.
func (d *Driver) Complete() error {
	return nil
}

func (d *Driver) offset(addr uint32) (int64, error) {
	if addr < d.base {
		return 0, ErrRange
	}
	return int64(addr - d.base), nil
}
