package protocol

import (
	"bytes"
	"testing"
)

func TestWordsRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	words := BytesToWords(data)

	if len(words) != 2 {
		t.Fatalf("Expected 2 words, got %d", len(words))
	}
	if words[0] != 0x04030201 {
		t.Errorf("Expected little-endian word 0x04030201, got %08X", words[0])
	}

	back := WordsToBytes(words)
	if !bytes.Equal(back, data) {
		t.Errorf("Round trip mismatch: got %v, want %v", back, data)
	}
}

func TestBytesToWordsPadding(t *testing.T) {
	words := BytesToWords([]byte{0x11, 0x22, 0x33, 0x44, 0x55})

	if len(words) != 2 {
		t.Fatalf("Expected 2 words for 5 bytes, got %d", len(words))
	}
	if words[1] != 0x00000055 {
		t.Errorf("Trailing word not zero padded: %08X", words[1])
	}
}

func TestStringWords(t *testing.T) {
	words := StringWords("rp2040")

	if len(words) != 2 {
		t.Fatalf("Expected 2 words for 6-byte string, got %d", len(words))
	}

	back := WordsToBytes(words)
	if string(back[:6]) != "rp2040" {
		t.Errorf("Decoded string mismatch: %q", back[:6])
	}
	if back[6] != 0 || back[7] != 0 {
		t.Errorf("Padding bytes not zero: %v", back[6:])
	}
}

func TestPutWord(t *testing.T) {
	out := NewScratchOutput()
	PutWord(out, 0xDEADBEEF)

	want := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	if !bytes.Equal(out.Result(), want) {
		t.Errorf("PutWord wrote %v, want %v", out.Result(), want)
	}
}
