// cpu_test.go - End-to-end CPU interpreter tests for the COSMO-32 emulator

package main

import (
	"encoding/binary"
	"testing"
	"time"
)

// newTestMachine builds a minimal Emulator with firmware loaded into flash
// and the CPU reset to its entry point, ready to Step.
func newTestMachine(t *testing.T, words []uint32) *Emulator {
	t.Helper()
	m := NewEmulator(t.TempDir())
	img := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(img[i*4:], w)
	}
	m.rom.LoadImage(img)
	m.cpu.Reset(memFlashBase)
	return m
}

func TestADDISanity(t *testing.T) {
	// addi x1,x0,1 ; addi x2,x1,1 ; ecall
	m := newTestMachine(t, []uint32{0x00100093, 0x00108113, 0x00000073})

	m.cpu.Step()
	m.cpu.Step()
	m.cpu.Step()

	if got := m.cpu.GetReg(1); got != 1 {
		t.Errorf("x1 = %d, want 1", got)
	}
	if got := m.cpu.GetReg(2); got != 2 {
		t.Errorf("x2 = %d, want 2", got)
	}
	if got := m.cpu.Mcause(); got != causeECallFromMMode {
		t.Errorf("mcause = %d, want %d", got, causeECallFromMMode)
	}
}

func TestTakenBranchSkipsFailurePath(t *testing.T) {
	// addi x1,x0,5 ; addi x2,x0,5 ; beq x1,x2,+12 ; addi x3,x0,99 ; ecall ;
	// addi x3,x0,7 ; ecall
	//
	// Offsets:    0            4            8               12            16      20           24
	// beq's +12 displacement targets offset 20 (the success path), skipping
	// the offset-12/16 failure path entirely.
	m := newTestMachine(t, []uint32{
		0x00500093, // addi x1,x0,5
		0x00500113, // addi x2,x0,5
		0x00208663, // beq x1,x2,+12
		0x06300193, // addi x3,x0,99
		0x00000073, // ecall
		0x00700193, // addi x3,x0,7
		0x00000073, // ecall
	})

	m.cpu.Step() // addi x1,x0,5
	m.cpu.Step() // addi x2,x0,5
	m.cpu.Step() // beq x1,x2,+12 (taken)
	m.cpu.Step() // addi x3,x0,7

	if got := m.cpu.GetReg(3); got != 7 {
		t.Errorf("x3 = %d, want 7 (branch should have skipped the x3=99 path)", got)
	}
}

func TestLoadReservedStoreConditionalSuccess(t *testing.T) {
	// lr.w x1,(x2) ; addi x3,x1,1 ; sc.w x4,x3,(x2) ; ecall
	m := newTestMachine(t, []uint32{
		0x100120AF, // lr.w x1,(x2)
		0x00108193, // addi x3,x1,1
		0x1831222F, // sc.w x4,x3,(x2)
		0x00000073, // ecall
	})

	const addr = memSRAMBase
	m.cpu.SetReg(2, addr)
	m.bus.Write32(addr, 41)

	m.cpu.Step() // lr.w
	if got := m.cpu.GetReg(1); got != 41 {
		t.Fatalf("x1 = %d, want 41", got)
	}
	m.cpu.Step() // addi
	if got := m.cpu.GetReg(3); got != 42 {
		t.Fatalf("x3 = %d, want 42", got)
	}
	m.cpu.Step() // sc.w
	if got := m.cpu.GetReg(4); got != 0 {
		t.Errorf("x4 = %d, want 0 (sc.w succeeded)", got)
	}
	if got := m.bus.Read32(addr); got != 42 {
		t.Errorf("mem[addr] = %d, want 42", got)
	}
}

func TestCompressedADDIExpansion(t *testing.T) {
	// c.li x10,7 (0x451D, 16-bit) followed by ecall (32-bit), back to back.
	m := NewEmulator(t.TempDir())
	img := make([]byte, 8)
	binary.LittleEndian.PutUint16(img[0:], 0x451D)
	binary.LittleEndian.PutUint32(img[2:], 0x00000073)
	m.rom.LoadImage(img)
	m.cpu.Reset(memFlashBase)

	m.cpu.Step()
	if got := m.cpu.PC(); got != 2 {
		t.Fatalf("pc after compressed instruction = 0x%X, want 0x2", got)
	}
	if got := m.cpu.GetReg(10); got != 7 {
		t.Errorf("x10 = %d, want 7", got)
	}

	m.cpu.Step()
	if got := m.cpu.Mcause(); got != causeECallFromMMode {
		t.Errorf("mcause = %d, want %d", got, causeECallFromMMode)
	}
}

func TestTimerInterruptWakesWFIAndTraps(t *testing.T) {
	// A single wfi instruction. The timer is armed to fire a few
	// milliseconds of wall-clock time after the test starts.
	m := newTestMachine(t, []uint32{0x10500073}) // wfi

	m.cpu.WriteCSR(csrMtvec, 0x100)
	m.cpu.WriteCSR(csrMie, mieMTIE)
	m.cpu.WriteCSR(csrMstatus, mstatusMIE)

	m.bus.Write32(memTimerBase+timerMTIMECMP_LO, 5)

	m.cpu.Step()
	m.tickDevices()
	if !m.cpu.WFI() {
		t.Fatalf("cpu did not enter WFI after the wfi instruction")
	}
	wfiPC := m.cpu.PC()

	deadline := time.Now().Add(200 * time.Millisecond)
	for m.cpu.WFI() && time.Now().Before(deadline) {
		m.Step()
	}
	if m.cpu.WFI() {
		t.Fatalf("timer interrupt never woke the CPU from WFI within 200ms")
	}

	if got := m.cpu.Mcause(); got != 0x80000000|interruptMTimer {
		t.Errorf("mcause = 0x%X, want 0x%X", got, 0x80000000|interruptMTimer)
	}
	if got := m.cpu.Mepc(); got != wfiPC {
		t.Errorf("mepc = 0x%X, want the post-WFI pc 0x%X", got, wfiPC)
	}
	if got := m.cpu.PC(); got != 0x100 {
		t.Errorf("pc = 0x%X, want mtvec 0x100", got)
	}
	if m.cpu.Mstatus()&mstatusMIE != 0 {
		t.Errorf("mstatus.MIE should be cleared on interrupt entry")
	}
	if m.cpu.Mstatus()&mstatusMPIE == 0 {
		t.Errorf("mstatus.MPIE should hold the pre-trap MIE value (1)")
	}
}

func TestX0NeverChanges(t *testing.T) {
	m := newTestMachine(t, []uint32{0x00000013}) // addi x0,x0,0
	m.cpu.SetReg(0, 0xDEADBEEF)
	if got := m.cpu.GetReg(0); got != 0 {
		t.Errorf("x0 = 0x%X after SetReg, want 0 (x0 is hardwired)", got)
	}
}

func TestCyclesMonotonic(t *testing.T) {
	m := newTestMachine(t, []uint32{0x00100093, 0x00108113, 0x00000073})
	prev := m.cpu.Cycles()
	for i := 0; i < 3; i++ {
		m.cpu.Step()
		cur := m.cpu.Cycles()
		if cur < prev {
			t.Fatalf("cycles decreased: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestStoreInvalidatesReservation(t *testing.T) {
	// lr.w x1,(x2) ; sw x5,0(x2) ; sc.w x4,x3,(x2) ; ecall
	// The intervening store to the reserved address must invalidate the
	// reservation, so the later sc.w fails.
	m := newTestMachine(t, []uint32{
		0x100120AF, // lr.w x1,(x2)
		0x00512023, // sw x5,0(x2)
		0x1831222F, // sc.w x4,x3,(x2)
		0x00000073, // ecall
	})
	const addr = memSRAMBase
	m.cpu.SetReg(2, addr)
	m.bus.Write32(addr, 1)

	m.cpu.Step() // lr.w sets the reservation
	m.cpu.Step() // sw invalidates it
	m.cpu.Step() // sc.w

	if got := m.cpu.GetReg(4); got != 1 {
		t.Errorf("x4 = %d, want 1 (sc.w should fail once the reservation is gone)", got)
	}
}

func TestAMOMisalignedAddressTrapsWithoutCorruptingPC(t *testing.T) {
	// lr.w x1,(x2) with x2 misaligned must trap to mtvec and land exactly
	// there, not mtvec+instLen.
	m := newTestMachine(t, []uint32{
		0x100120AF, // lr.w x1,(x2)
		0x00000073, // ecall
	})
	m.cpu.WriteCSR(csrMtvec, 0x100)
	m.cpu.SetReg(2, memSRAMBase+1) // misaligned

	m.cpu.Step()

	if got := m.cpu.Mcause(); got != causeStoreAddressMisaligned {
		t.Errorf("mcause = %d, want %d", got, causeStoreAddressMisaligned)
	}
	if got := m.cpu.Mtval(); got != memSRAMBase+1 {
		t.Errorf("mtval = 0x%X, want the misaligned address 0x%X", got, memSRAMBase+1)
	}
	if got := m.cpu.PC(); got != 0x100 {
		t.Errorf("pc = 0x%X, want exactly mtvec (0x100), not mtvec+instLen", got)
	}
}

func TestCSRRWRoundTrip(t *testing.T) {
	// csrrw x1,mtvec,x0
	m := newTestMachine(t, []uint32{0x305010F3})
	m.cpu.WriteCSR(csrMtvec, 0x1000)
	if got := m.cpu.Mtvec(); got != 0x1000 {
		t.Errorf("mtvec = 0x%X, want 0x1000", got)
	}
	m.cpu.Step()
	if got := m.cpu.GetReg(1); got != 0x1000 {
		t.Errorf("x1 = 0x%X, want the old mtvec 0x1000", got)
	}
	if got := m.cpu.Mtvec(); got != 0 {
		t.Errorf("mtvec = 0x%X after csrrw with x0, want 0", got)
	}
}

func TestJALX0SelfLoopAdvancesCyclesNotPC(t *testing.T) {
	// jal x0,+0 is a valid encoded infinite self-loop; one Step must retire
	// it (advancing cycles) without moving pc, since the jump target is the
	// instruction's own address.
	m := newTestMachine(t, []uint32{0x0000006F}) // jal x0,+0
	before := m.cpu.Cycles()
	m.cpu.Step()
	if got := m.cpu.PC(); got != memFlashBase {
		t.Errorf("pc = 0x%X, want 0x%X (jal x0,+0 targets its own address)", got, memFlashBase)
	}
	if m.cpu.Cycles() <= before {
		t.Errorf("cycles did not advance across the retired jal")
	}
}
