package bitbuffer

import (
	"bytes"
	"testing"
)

func TestAppendAndAt(t *testing.T) {
	b := New()
	bits := []bool{true, false, false, true, true, false, true, true}
	for _, bit := range bits {
		b.Append(bit)
	}
	if b.Size() != len(bits) {
		t.Fatalf("size = %d, want %d", b.Size(), len(bits))
	}
	for i, want := range bits {
		got, err := b.At(i)
		if err != nil {
			t.Fatalf("At(%d) error: %v", i, err)
		}
		if got != want {
			t.Errorf("At(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	b := New()
	b.Append(true)
	if _, err := b.At(-1); err != ErrOutOfRange {
		t.Errorf("At(-1) error = %v, want ErrOutOfRange", err)
	}
	if _, err := b.At(1); err != ErrOutOfRange {
		t.Errorf("At(1) error = %v, want ErrOutOfRange", err)
	}
}

func TestFlushFullWords(t *testing.T) {
	b := New()
	// bit 0 of word 0 must land in the LSB of the first written byte.
	for i := 0; i < 32; i++ {
		b.Append(i == 0 || i == 8)
	}
	var out bytes.Buffer
	n, err := b.FlushFullWords(&out)
	if err != nil {
		t.Fatalf("flush error: %v", err)
	}
	if n != 4 {
		t.Fatalf("wrote %d bytes, want 4", n)
	}
	want := []byte{0x01, 0x01, 0x00, 0x00}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("flush bytes = %x, want %x", out.Bytes(), want)
	}
	if b.Size() != 0 {
		t.Fatalf("size after flush = %d, want 0", b.Size())
	}
}

func TestFreeBitsShiftsDown(t *testing.T) {
	b := New()
	for i := 0; i < 70; i++ {
		b.Append(i%3 == 0)
	}
	pre := make([]bool, b.Size())
	for i := range pre {
		pre[i], _ = b.At(i)
	}
	const k = 13
	if err := b.FreeBits(k); err != nil {
		t.Fatalf("FreeBits error: %v", err)
	}
	if b.Size() != len(pre)-k {
		t.Fatalf("size after free = %d, want %d", b.Size(), len(pre)-k)
	}
	for i := 0; i < b.Size(); i++ {
		got, err := b.At(i)
		if err != nil {
			t.Fatalf("At(%d) error: %v", i, err)
		}
		if got != pre[i+k] {
			t.Errorf("At(%d) = %v, want %v (pre-free bit %d)", i, got, pre[i+k], i+k)
		}
	}
}

func TestFreeBitsWholeWords(t *testing.T) {
	b := New()
	for i := 0; i < 96; i++ {
		b.Append(i%5 == 0)
	}
	if err := b.FreeBits(64); err != nil {
		t.Fatalf("FreeBits error: %v", err)
	}
	if b.Size() != 32 {
		t.Fatalf("size = %d, want 32", b.Size())
	}
}

func TestFreeBitsOutOfRange(t *testing.T) {
	b := New()
	b.Append(true)
	if err := b.FreeBits(2); err != ErrOutOfRange {
		t.Errorf("FreeBits(2) error = %v, want ErrOutOfRange", err)
	}
}

func TestClear(t *testing.T) {
	b := New()
	for i := 0; i < 50; i++ {
		b.Append(true)
	}
	b.Clear()
	if b.Size() != 0 {
		t.Fatalf("size after clear = %d, want 0", b.Size())
	}
	b.Append(false)
	if b.Size() != 1 {
		t.Fatalf("size after append post-clear = %d, want 1", b.Size())
	}
}
