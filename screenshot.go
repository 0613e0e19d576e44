// screenshot.go - Binary PPM framebuffer dump for the COSMO-32 emulator

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
	"bufio"
	"fmt"
	"os"
)

// modeDimensions returns the pixel geometry for the two supported display
// modes (spec §4.6).
func modeDimensions(mode uint32) (width, height int) {
	if mode&0x1 == Mode1_320x200x16bpp {
		return 320, 200
	}
	return 640, 400
}

// rgb565ToRGB24 expands a 16-bit RGB565 sample to 24-bit RGB by padding the
// low bits with the 3-bit/2-bit left shift the spec's screenshot format
// calls for, rather than a proportional scale.
func rgb565ToRGB24(px uint16) (r, g, b byte) {
	r = byte((px>>11)&0x1F) << 3
	g = byte((px>>5)&0x3F) << 2
	b = byte(px&0x1F) << 3
	return
}

// WriteScreenshot renders the active display mode's framebuffer (read
// through the palette for 4bpp mode, or directly as packed RGB565 samples
// for 16bpp mode) to a binary PPM (P6) file.
func (m *Emulator) WriteScreenshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	defer f.Close()

	w, h := modeDimensions(m.display.Mode())
	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", w, h)

	fb := m.extsram.Framebuffer()
	mode := m.display.Mode()

	pixel := func(i int) (byte, byte, byte) {
		if mode == Mode1_320x200x16bpp {
			off := i * 2
			if off+1 >= len(fb) {
				return 0, 0, 0
			}
			px := uint16(fb[off]) | uint16(fb[off+1])<<8
			return rgb565ToRGB24(px)
		}
		// 4bpp indexed: two pixels packed per byte, low nibble first.
		off := i / 2
		if off >= len(fb) {
			return 0, 0, 0
		}
		var idx byte
		if i%2 == 0 {
			idx = fb[off] & 0xF
		} else {
			idx = (fb[off] >> 4) & 0xF
		}
		return rgb565ToRGB24(uint16(m.display.Palette(int(idx))))
	}

	buf := make([]byte, 0, w*h*3)
	for i := 0; i < w*h; i++ {
		r, g, b := pixel(i)
		buf = append(buf, r, g, b)
	}
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return bw.Flush()
}
