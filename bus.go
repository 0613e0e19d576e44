// bus.go - Memory-mapped bus and device model for the COSMO-32 emulator

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

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Width governs every bus access.
type Width int

const (
	Byte Width = iota
	Half
	Word
)

// Interrupt is returned by a device's Tick when it wants to raise an
// interrupt. For most devices Cause is a PFIC line; the Timer's is routed to
// the CPU's machine-timer interrupt instead (see Emulator.tickDevices).
type Interrupt struct {
	Cause uint32
}

// Device is the common contract every bus-mapped peripheral implements.
type Device interface {
	Read(off uint32, width Width) uint32
	Write(off uint32, width Width, value uint32)
	// Tick polls the device for a pending interrupt. cycles is the CPU's
	// monotonic retirement counter at the time of the call.
	Tick(cycles uint64) (Interrupt, bool)
}

type mapping struct {
	base, size uint32
	dev        Device
	name       string
}

// Bus is an ordered address-decoded router with two optional fast paths
// (flash, SRAM) that bypass the device list entirely for hot regions.
type Bus struct {
	mappings []mapping

	flashBase, flashEnd uint32
	flash               []byte

	sramBase, sramEnd uint32
	sram              []byte
}

func NewBus() *Bus {
	return &Bus{}
}

// Map registers a device over [base, base+size). Mappings are consulted in
// registration order; the first match wins.
func (b *Bus) Map(base, size uint32, dev Device, name string) {
	b.mappings = append(b.mappings, mapping{base: base, size: size, dev: dev, name: name})
}

// MapFlash registers the flash fast-path region backed directly by mem.
func (b *Bus) MapFlash(base uint32, mem []byte) {
	b.flashBase = base
	b.flashEnd = base + uint32(len(mem))
	b.flash = mem
}

// MapSRAM registers the internal-SRAM fast-path region backed directly by mem.
func (b *Bus) MapSRAM(base uint32, mem []byte) {
	b.sramBase = base
	b.sramEnd = base + uint32(len(mem))
	b.sram = mem
}

func (b *Bus) find(addr uint32) (mapping, bool) {
	for _, m := range b.mappings {
		if addr >= m.base && addr < m.base+m.size {
			return m, true
		}
	}
	return mapping{}, false
}

func (b *Bus) Read(addr uint32, width Width) uint32 {
	if b.flash != nil && addr >= b.flashBase && addr < b.flashEnd {
		return readSlice(b.flash, addr-b.flashBase, width)
	}
	if b.sram != nil && addr >= b.sramBase && addr < b.sramEnd {
		return readSlice(b.sram, addr-b.sramBase, width)
	}
	if m, ok := b.find(addr); ok {
		return m.dev.Read(addr-m.base, width)
	}
	fmt.Fprintf(os.Stderr, "bus: unmapped read at 0x%08X\n", addr)
	return 0
}

func (b *Bus) Write(addr uint32, width Width, value uint32) {
	if b.flash != nil && addr >= b.flashBase && addr < b.flashEnd {
		// Flash is read-only (device_memory.go's ROM.Write is a no-op); the
		// fast path must observe that, not silently mutate the backing array.
		return
	}
	if b.sram != nil && addr >= b.sramBase && addr < b.sramEnd {
		writeSlice(b.sram, addr-b.sramBase, width, value)
		return
	}
	if m, ok := b.find(addr); ok {
		m.dev.Write(addr-m.base, width, value)
		return
	}
	fmt.Fprintf(os.Stderr, "bus: unmapped write at 0x%08X (dropped)\n", addr)
}

// Read8/Read16/Read32/Write8/Write16/Write32 are convenience wrappers used by
// the CPU core's single-byte load/store synthesis path (misaligned accesses).
func (b *Bus) Read8(addr uint32) uint32  { return b.Read(addr, Byte) }
func (b *Bus) Read16(addr uint32) uint32 { return b.Read(addr, Half) }
func (b *Bus) Read32(addr uint32) uint32 { return b.Read(addr, Word) }

func (b *Bus) Write8(addr uint32, v uint32)  { b.Write(addr, Byte, v) }
func (b *Bus) Write16(addr uint32, v uint32) { b.Write(addr, Half, v) }
func (b *Bus) Write32(addr uint32, v uint32) { b.Write(addr, Word, v) }

// Devices returns the registered devices in mapping order, for the host
// loop's per-step tick pass.
func (b *Bus) Devices() []Device {
	out := make([]Device, 0, len(b.mappings))
	for _, m := range b.mappings {
		out = append(out, m.dev)
	}
	return out
}

func readSlice(mem []byte, off uint32, width Width) uint32 {
	switch width {
	case Byte:
		if int(off) >= len(mem) {
			return 0
		}
		return uint32(mem[off])
	case Half:
		if int(off)+2 > len(mem) {
			return 0
		}
		return uint32(binary.LittleEndian.Uint16(mem[off:]))
	default:
		if int(off)+4 > len(mem) {
			return 0
		}
		return binary.LittleEndian.Uint32(mem[off:])
	}
}

func writeSlice(mem []byte, off uint32, width Width, value uint32) {
	switch width {
	case Byte:
		if int(off) >= len(mem) {
			return
		}
		mem[off] = byte(value)
	case Half:
		if int(off)+2 > len(mem) {
			return
		}
		binary.LittleEndian.PutUint16(mem[off:], uint16(value))
	default:
		if int(off)+4 > len(mem) {
			return
		}
		binary.LittleEndian.PutUint32(mem[off:], value)
	}
}
