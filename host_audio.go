// host_audio.go - Interactive-mode oto audio-pull bridge for the COSMO-32 emulator

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

// The teacher's audio_backend_oto.go OtoPlayer pulls float32 mono samples
// from a SoundChip ring via an atomic.Pointer and an unsafe.Pointer cast into
// oto's io.Reader-shaped Read callback. AudioFIFO instead packs native
// 16-bit stereo frames ((right<<16)|left), so this bridge targets oto's
// FormatSignedInt16LE/2-channel mode directly rather than converting to
// float32, and pulls from AudioFIFO.ReadSamples instead of a ring pointer.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	audioSampleRate    = 48000
	audioPullFrames    = 512
	audioUnderrunDelay = 4 * time.Millisecond
)

// audioFIFOReader adapts AudioFIFO's packed-stereo ReadSamples API to the
// io.Reader oto's player consumes, writing little-endian interleaved
// signed-16 samples (left, then right) per frame.
type audioFIFOReader struct {
	fifo *AudioFIFO
	buf  []uint32
}

func newAudioFIFOReader(fifo *AudioFIFO) *audioFIFOReader {
	return &audioFIFOReader{fifo: fifo, buf: make([]uint32, audioPullFrames)}
}

func (r *audioFIFOReader) Read(p []byte) (int, error) {
	frameCap := len(p) / 4
	if frameCap == 0 {
		return 0, nil
	}
	if frameCap > len(r.buf) {
		frameCap = len(r.buf)
	}
	n := r.fifo.ReadSamples(r.buf[:frameCap])
	if n == 0 {
		// Underrun: emit silence rather than blocking oto's player goroutine.
		time.Sleep(audioUnderrunDelay)
		for i := 0; i < 4; i++ {
			p[i] = 0
		}
		return 4, nil
	}
	for i := 0; i < n; i++ {
		frame := r.buf[i]
		left := uint16(frame)
		right := uint16(frame >> 16)
		off := i * 4
		p[off+0] = byte(left)
		p[off+1] = byte(left >> 8)
		p[off+2] = byte(right)
		p[off+3] = byte(right >> 8)
	}
	return n * 4, nil
}

// AudioOutput owns the oto context and player pulling from an AudioFIFO for
// the interactive (non-headless) CLI mode.
type AudioOutput struct {
	ctx    *oto.Context
	player *oto.Player
	source *audioFIFOReader
}

// NewAudioOutput creates an oto context at audioSampleRate/stereo/16-bit and
// wires it to fifo. Start must be called before sound plays.
func NewAudioOutput(fifo *AudioFIFO) (*AudioOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   audioSampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("host_audio: new oto context: %w", err)
	}
	<-ready

	source := newAudioFIFOReader(fifo)
	player := ctx.NewPlayer(io.Reader(source))

	return &AudioOutput{ctx: ctx, player: player, source: source}, nil
}

// Start begins playback; it runs until Stop is called.
func (a *AudioOutput) Start() {
	a.player.Play()
}

// Stop halts playback and releases the player.
func (a *AudioOutput) Stop() {
	if err := a.player.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "host_audio: close player: %v\n", err)
	}
}
