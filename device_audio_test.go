// device_audio_test.go - Stereo sample FIFO, status flags, and half-empty IRQ tests

package main

import "testing"

func TestAudioFIFOWriteSampleAndReadSamplesRoundTrip(t *testing.T) {
	a := NewAudioFIFO(nil, 0)
	a.Write(audioDATA, Word, (uint32(0xFFFF)<<16)|uint32(uint16(int16(100))))

	out := make([]uint32, 4)
	n := a.ReadSamples(out)
	if n != 1 {
		t.Fatalf("ReadSamples returned %d, want 1", n)
	}
	left := int16(out[0] & 0xFFFF)
	right := int16(out[0] >> 16)
	if left != 100 || right != -1 {
		t.Errorf("got left=%d right=%d, want left=100 right=-1", left, right)
	}
}

func TestAudioFIFOStatusFlagsTrackOccupancy(t *testing.T) {
	a := NewAudioFIFO(nil, 0)
	if got := a.Read(audioSTATUS, Word); got&audioStatusTXE == 0 {
		t.Fatalf("an empty FIFO should report TXE")
	}

	for i := 0; i < audioHalfBufferSize+1; i++ {
		a.Write(audioDATA, Word, 0)
	}
	status := a.Read(audioSTATUS, Word)
	if status&audioStatusTXE != 0 {
		t.Errorf("a non-empty FIFO must not report TXE")
	}
	if status&audioStatusTXHF != 0 {
		t.Errorf("occupancy above half should clear TXHF")
	}
	if status&audioStatusBSY == 0 {
		t.Errorf("a non-empty FIFO should report BSY")
	}
}

func TestAudioFIFOWriteSampleDropsWhenFull(t *testing.T) {
	a := NewAudioFIFO(nil, 0)
	for i := 0; i < audioBufferSize+10; i++ {
		a.Write(audioDATA, Word, uint32(i))
	}
	if got := a.Read(audioBUFCNT, Word); got != audioBufferSize {
		t.Errorf("BUFCNT = %d, want capped at %d", got, audioBufferSize)
	}
}

func TestAudioFIFOTickFiresWhileTXIEAndBelowHalf(t *testing.T) {
	a := NewAudioFIFO(nil, 3)
	if _, fired := a.Tick(0); fired {
		t.Fatalf("TXIE is clear, Tick must not fire")
	}

	a.Write(audioCTRL, Word, audioCtrlTXIE)
	irq, fired := a.Tick(0)
	if !fired || irq.Cause != 3 {
		t.Errorf("Tick() = (%+v, %v), want (Cause:3, true) once TXIE is set and the FIFO is empty", irq, fired)
	}
}

func TestAudioFIFOClkdivZeroWriteClampsToOne(t *testing.T) {
	a := NewAudioFIFO(nil, 0)
	a.Write(audioCLKDIV, Word, 0)
	if got := a.Read(audioCLKDIV, Word); got != 1 {
		t.Errorf("CLKDIV after writing 0 = %d, want clamped to 1", got)
	}
}
