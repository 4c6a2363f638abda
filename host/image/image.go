// Package image loads firmware images for flashing: raw binaries at a
// fixed base address, or Intel HEX files carrying their own addresses.
package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// FillByte pads images out to a block boundary. It matches the flash
// erased pattern so padding is invisible after programming.
const FillByte = 0xFF

// maxImageSpan bounds the address range an Intel HEX file may cover,
// guarding against files whose segments are scattered across the
// address space.
const maxImageSpan = 16 << 20

var (
	ErrEmptyImage = errors.New("image: no data")
	ErrSparseHex  = errors.New("image: hex segments span too large a range")
)

// Image is a firmware image normalized to one contiguous byte range.
type Image struct {
	// Start is the absolute flash address of Data[0].
	Start uint32
	Data  []byte
}

// Load reads a firmware image, picking the format from the file
// extension: .hex and .ihex parse as Intel HEX (start ignored),
// anything else is a raw binary placed at start.
func Load(path string, start uint32) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		return LoadHex(path)
	default:
		return LoadBin(path, start)
	}
}

// LoadBin reads a raw binary image to be flashed at start.
func LoadBin(path string, start uint32) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return &Image{Start: start, Data: data}, nil
}

// LoadHex reads an Intel HEX image. Gaps between segments are filled
// with the erased pattern so the result is one contiguous range.
func LoadHex(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	defer f.Close()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return nil, fmt.Errorf("image: parse %s: %w", path, err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, ErrEmptyImage
	}

	start := segments[0].Address
	end := start + uint32(len(segments[0].Data))
	for _, seg := range segments[1:] {
		if seg.Address < start {
			start = seg.Address
		}
		if segEnd := seg.Address + uint32(len(seg.Data)); segEnd > end {
			end = segEnd
		}
	}
	if end-start > maxImageSpan {
		return nil, ErrSparseHex
	}

	data := make([]byte, end-start)
	for i := range data {
		data[i] = FillByte
	}
	for _, seg := range segments {
		copy(data[seg.Address-start:], seg.Data)
	}

	return &Image{Start: start, Data: data}, nil
}

// PadTo extends the image with the erased pattern so its length is a
// multiple of blockSize.
func (img *Image) PadTo(blockSize uint32) {
	rem := uint32(len(img.Data)) % blockSize
	if rem == 0 {
		return
	}
	pad := make([]byte, blockSize-rem)
	for i := range pad {
		pad[i] = FillByte
	}
	img.Data = append(img.Data, pad...)
}

// NumBlocks returns how many blockSize transfers the image needs.
// The image must be padded first.
func (img *Image) NumBlocks(blockSize uint32) int {
	return len(img.Data) / int(blockSize)
}

// Block returns the address and payload of transfer i.
func (img *Image) Block(i int, blockSize uint32) (addr uint32, payload []byte) {
	off := uint32(i) * blockSize
	return img.Start + off, img.Data[off : off+blockSize]
}
