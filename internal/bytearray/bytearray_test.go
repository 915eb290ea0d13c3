package bytearray

import (
	"testing"

	"github.com/gopika/gopika/internal/gc"
)

func newTestCollector() *gc.Collector {
	c := gc.New(gc.Config{NumAllocs: 1 << 30, WorkPerStep: 1000})
	c.SetRoots(func() []gc.Object { return nil })
	return c
}

func TestRoundTripBigEndian(t *testing.T) {
	gcr := newTestCollector()
	b := New(gcr, nil)
	if err := b.SetEndian(BigEndian); err != nil {
		t.Fatalf("SetEndian: %v", err)
	}

	if err := b.WriteByte(0x01); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := b.WriteWord(0x0203); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	if err := b.WriteDword(0x04050607); err != nil {
		t.Fatalf("WriteDword: %v", err)
	}

	b.Rewind()
	gotByte, err := b.ReadByte()
	if err != nil || gotByte != 0x01 {
		t.Fatalf("ReadByte = %#x, %v", gotByte, err)
	}
	gotWord, err := b.ReadWord()
	if err != nil || gotWord != 0x0203 {
		t.Fatalf("ReadWord = %#x, %v", gotWord, err)
	}
	gotDword, err := b.ReadDword()
	if err != nil || gotDword != 0x04050607 {
		t.Fatalf("ReadDword = %#x, %v", gotDword, err)
	}
}

func TestWriteByteGrowsBufferByExactlyOneAtEnd(t *testing.T) {
	gcr := newTestCollector()
	b := New(gcr, nil)

	for i, want := range []byte{0xAA, 0xBB, 0xCC} {
		if err := b.WriteByte(want); err != nil {
			t.Fatalf("WriteByte #%d: %v", i, err)
		}
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("expected length 3 after three appends, got %d", got)
	}
	if got := b.Position(); got != 3 {
		t.Fatalf("expected position 3, got %d", got)
	}

	if err := b.SetPosition(1); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if err := b.WriteByte(0xFF); err != nil {
		t.Fatalf("in-place WriteByte: %v", err)
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("expected length to stay 3 after an in-place overwrite, got %d", got)
	}
	if b.Bytes()[1] != 0xFF {
		t.Fatalf("expected byte at index 1 to be overwritten")
	}
}

func TestWriteByteFailsWhenAutoGrowDisabled(t *testing.T) {
	gcr := newTestCollector()
	b := New(gcr, nil)
	b.SetAutoGrow(false)

	if err := b.WriteByte(0x01); err == nil {
		t.Fatalf("expected an error writing past an empty, non-growing buffer")
	}
}

func TestSetLengthClampsPositionToNewEnd(t *testing.T) {
	gcr := newTestCollector()
	b := NewFromBytes(gcr, nil, []byte{1, 2, 3, 4, 5})
	if err := b.SetPosition(4); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if err := b.SetLength(2); err != nil {
		t.Fatalf("SetLength: %v", err)
	}
	if got := b.Position(); got != 2 {
		t.Fatalf("expected position clamped to 2, got %d", got)
	}
}

func TestReadStringLengthAndReadStringAll(t *testing.T) {
	gcr := newTestCollector()
	b := NewFromBytes(gcr, nil, []byte("hello world"))

	got, err := b.ReadStringLength(5)
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadStringLength = %q, %v", got, err)
	}

	rest := b.ReadStringAll()
	if string(rest) != " world" {
		t.Fatalf("ReadStringAll = %q", rest)
	}
	if b.Position() != b.Len() {
		t.Fatalf("expected cursor at end after ReadStringAll")
	}
}

func TestReadPastEndFails(t *testing.T) {
	gcr := newTestCollector()
	b := NewFromBytes(gcr, nil, []byte{1, 2})
	if _, err := b.ReadDword(); err == nil {
		t.Fatalf("expected a short-read error")
	}
}
