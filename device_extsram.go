// device_extsram.go - External SRAM with embedded framebuffer for the COSMO-32 emulator

/*
 ▄████▄   ▒█████    ██████  ███▄ ▄███▓ ▒█████       ▄▄▄██▓▒
▒██▀ ▀█  ▒██▒  ██▒▒██    ▒ ▓██▒▀█▀ ██▒▒██▒  ██▒    ▒██▓██▒
▒▓█    ▄ ▒██░  ██░░ ▓██▄   ▓██    ▓██░▒██░  ██▒    ██▓██▒
▒▓▓▄ ▄██▒▒██   ██░  ▒   ██▒▒██    ▒██ ▒██   ██░    ▓█▓██▒
▒ ▓███▀ ░░ ████▓▒░▒██████▒▒▒██▒   ░██▒░ ████▓▒░    ▒██▒ ░
░ ░▒ ▒  ░░ ▒░▒░▒░ ▒ ▒▓▒ ▒ ░░ ▒░   ░  ░░ ▒░▒░▒░     ▒ ░░
  ░  ▒     ░ ▒ ▒░ ░ ░▒  ░ ░░  ░      ░  ░ ▒ ▒░       ░
░          ░ ░ ░ ▒  ░  ░   ░      ░   ░ ░ ░ ▒      ░
░ ░            ░ ░        ░      ░        ░ ░

COSMO-32 — RV32IMAC embedded platform emulator
License: GPLv3 or later
*/

package main

const (
	ExtSRAMSize         = 1024 * 1024
	FramebufferOffset   = 0xE0000
	FramebufferSize     = 0x20000
)

// ExtSRAM is the 1MB external SRAM. Unlike ROM/RAM's bounds-check-then-zero
// behavior, addresses wrap modulo the region size, matching
// original_source/emu/src/device/fsmc.hpp.
type ExtSRAM struct {
	data [ExtSRAMSize]byte
}

func NewExtSRAM() *ExtSRAM {
	return &ExtSRAM{}
}

func (e *ExtSRAM) Framebuffer() []byte {
	return e.data[FramebufferOffset : FramebufferOffset+FramebufferSize]
}

func (e *ExtSRAM) Read(off uint32, width Width) uint32 {
	off &= ExtSRAMSize - 1
	return readSlice(e.data[:], off, width)
}

func (e *ExtSRAM) Write(off uint32, width Width, value uint32) {
	off &= ExtSRAMSize - 1
	writeSlice(e.data[:], off, width, value)
}

func (e *ExtSRAM) Tick(cycles uint64) (Interrupt, bool) {
	return Interrupt{}, false
}
