package display

import (
	"bytes"
	"testing"
)

func TestStripAlpha(t *testing.T) {
	// Two BGRX pixels: blue and red, alpha bytes must be dropped.
	src := []byte{
		0xff, 0x00, 0x00, 0xaa,
		0x00, 0x00, 0xff, 0xbb,
	}
	dst := make([]byte, 6)
	stripAlpha(dst, src, 2)

	want := []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0xff}
	if !bytes.Equal(dst, want) {
		t.Fatalf("stripAlpha = %v, want %v", dst, want)
	}
}

func TestMonitorLookupMissing(t *testing.T) {
	d := &Display{monitors: []Monitor{{Index: 1, Width: 1920, Height: 1080}}}
	if _, err := d.Monitor(3); err == nil {
		t.Fatal("expected error for unknown monitor index")
	}
	m, err := d.Monitor(1)
	if err != nil {
		t.Fatalf("Monitor(1): %v", err)
	}
	if m.Width != 1920 {
		t.Fatalf("width = %d", m.Width)
	}
}
