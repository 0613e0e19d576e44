// device_extsram_test.go - Wraparound addressing and framebuffer aliasing tests

package main

import "testing"

func TestExtSRAMReadWriteRoundTrip(t *testing.T) {
	e := NewExtSRAM()
	e.Write(0x100, Word, 0xDEADBEEF)
	if got := e.Read(0x100, Word); got != 0xDEADBEEF {
		t.Errorf("readback = 0x%X, want 0xDEADBEEF", got)
	}
}

func TestExtSRAMAddressWrapsModuloSize(t *testing.T) {
	e := NewExtSRAM()
	e.Write(ExtSRAMSize+0x10, Word, 0x12345678)
	if got := e.Read(0x10, Word); got != 0x12345678 {
		t.Errorf("write past the top should wrap to offset 0x10, got 0x%X", got)
	}
}

func TestExtSRAMFramebufferAliasesUnderlyingData(t *testing.T) {
	e := NewExtSRAM()
	fb := e.Framebuffer()
	if len(fb) != FramebufferSize {
		t.Fatalf("Framebuffer() len = %d, want %d", len(fb), FramebufferSize)
	}
	e.Write(FramebufferOffset, Byte, 0x42)
	if fb[0] != 0x42 {
		t.Errorf("Framebuffer()[0] = 0x%X, want 0x42 (same backing array as Write)", fb[0])
	}
}
