package protocol

import "encoding/binary"

// WordSize is the size in bytes of one protocol word.
const WordSize = 4

// PutWord writes one word to the output in wire byte order.
func PutWord(out OutputBuffer, w uint32) {
	var b [WordSize]byte
	binary.LittleEndian.PutUint32(b[:], w)
	out.Output(b[:])
}

// BytesToWords converts a byte slice to protocol words. A trailing
// partial word is zero padded.
func BytesToWords(b []byte) []uint32 {
	words := make([]uint32, (len(b)+WordSize-1)/WordSize)
	for i := range words {
		var w [WordSize]byte
		copy(w[:], b[i*WordSize:])
		words[i] = binary.LittleEndian.Uint32(w[:])
	}
	return words
}

// WordsToBytes converts protocol words back to their wire byte
// representation.
func WordsToBytes(words []uint32) []byte {
	b := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*WordSize:], w)
	}
	return b
}

// StringWords encodes a string as zero-padded protocol words, as used
// for the MCU identifier in the CONNECT acknowledgment.
func StringWords(s string) []uint32 {
	return BytesToWords([]byte(s))
}
