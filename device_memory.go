// device_memory.go - Flash ROM and internal SRAM for the COSMO-32 emulator

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

// DefaultFlashSize is the default guest flash capacity (spec §6).
const DefaultFlashSize = 256 * 1024

// DefaultSRAMSize is the default internal-SRAM capacity (spec §6).
const DefaultSRAMSize = 64 * 1024

// ROM is flash: writes are dropped, loads truncate to capacity.
type ROM struct {
	data []byte
}

func NewROM(size int) *ROM {
	return &ROM{data: make([]byte, size)}
}

// LoadImage copies a raw firmware image verbatim starting at offset 0,
// truncating at capacity.
func (r *ROM) LoadImage(img []byte) {
	n := copy(r.data, img)
	_ = n
}

func (r *ROM) Bytes() []byte { return r.data }

func (r *ROM) Read(off uint32, width Width) uint32  { return readSlice(r.data, off, width) }
func (r *ROM) Write(off uint32, width Width, v uint32) {} // flash is read-only
func (r *ROM) Tick(cycles uint64) (Interrupt, bool)  { return Interrupt{}, false }

// RAM is bounds-checked internal SRAM.
type RAM struct {
	data []byte
}

func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) Bytes() []byte { return r.data }

func (r *RAM) Read(off uint32, width Width) uint32     { return readSlice(r.data, off, width) }
func (r *RAM) Write(off uint32, width Width, v uint32)  { writeSlice(r.data, off, width, v) }
func (r *RAM) Tick(cycles uint64) (Interrupt, bool)     { return Interrupt{}, false }
