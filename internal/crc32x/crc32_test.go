package crc32x

import (
	"bytes"
	"testing"
)

func TestChecksumMatchesPrefix(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	full, err := Checksum(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Checksum error: %v", err)
	}
	prefix, err := ChecksumPrefix(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ChecksumPrefix error: %v", err)
	}
	if full != prefix {
		t.Errorf("Checksum=%x, ChecksumPrefix(full)=%x, want equal", full, prefix)
	}
}

func TestChecksumIncremental(t *testing.T) {
	data := []byte("abcdefg")
	h := NewIEEE()
	h.Write(data)
	incremental := h.Sum32()

	whole, err := Checksum(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Checksum error: %v", err)
	}
	if incremental != whole {
		t.Errorf("incremental=%x whole=%x", incremental, whole)
	}
}

func TestChecksumPrefixBounded(t *testing.T) {
	data := []byte("0123456789")
	got, err := ChecksumPrefix(bytes.NewReader(data), 5)
	if err != nil {
		t.Fatalf("ChecksumPrefix error: %v", err)
	}
	want, _ := Checksum(bytes.NewReader(data[:5]))
	if got != want {
		t.Errorf("ChecksumPrefix(5) = %x, want %x", got, want)
	}
}
