// cpu_exec.go - RV32IMAC instruction semantics for the COSMO-32 emulator

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

// The canonical single-step dispatcher and every instruction's semantics.
// The batched run loop in cpu_run.go shares these exact functions for
// OP/OP-IMM/LOAD/STORE/BRANCH/JAL/JALR/LUI/AUIPC/MISC-MEM and delegates to
// execSystem/execAMO for SYSTEM and AMO, so both paths stay in sync by
// construction.
package main

// Step executes exactly one instruction, or takes one pending interrupt
// without fetching, or performs one of the documented no-op returns for
// halted/wfi.
func (c *CPU) Step() {
	if c.halted {
		return
	}

	c.syncInterruptState()
	if c.wfi {
		return
	}

	// An interrupt that is pending and enabled at the start of a step (one
	// that woke the hart from WFI, or one raised by a device tick since the
	// previous step) is taken before the next fetch, rather than after one
	// more instruction retires. Right after a delivery this check does
	// nothing, since taking the trap clears mstatus.MIE.
	if c.deliverPendingInterrupt() {
		c.cycles++
		return
	}

	word := c.bus.Read32(c.pc)
	var inst uint32
	if !isCompressed(word) {
		inst = word
		c.instLen = 4
	} else {
		inst = expandCompressed(uint16(word))
		if inst == 0 {
			c.illegalInstruction(word & 0xFFFF)
			return
		}
		c.instLen = 2
	}

	c.dispatch(inst)

	if c.deliverPendingInterrupt() {
		c.cycles++
	}
}

// dispatch executes inst and, for instructions that don't compute their own
// next PC, advances pc by instLen and increments cycles.
func (c *CPU) dispatch(inst uint32) {
	op := opcode(inst)
	switch op {
	case opBranch:
		c.execBranch(inst)
		return
	case opJal:
		c.execJal(inst)
		return
	case opJalr:
		c.execJalr(inst)
		return
	case opSystem:
		if funct3(inst) == 0 {
			c.execSystem(inst) // always returns early: traps, mret or wfi advance PC themselves
			return
		}
		c.execCSR(inst)
	case opOp:
		if !c.execOp(inst) {
			return
		}
	case opOpImm:
		c.execOpImm(inst)
	case opLoad:
		if !c.execLoad(inst) {
			return
		}
	case opStore:
		if !c.execStore(inst) {
			return
		}
	case opLui:
		c.SetReg(rd(inst), uint32(immU(inst)))
	case opAuipc:
		c.SetReg(rd(inst), c.pc+uint32(immU(inst)))
	case opAmo:
		c.execAMO(inst)
		return
	case opMiscMem:
		// FENCE / FENCE.I: no-op, single hart in-order.
	default:
		c.illegalInstruction(inst)
		return
	}

	c.pc += c.instLen
	c.cycles++
}

// execOp returns false if it raised a trap (illegal funct3), in which case
// the caller must not perform the usual pc/cycles epilogue.
func (c *CPU) execOp(inst uint32) bool {
	a := c.GetReg(rs1(inst))
	b := c.GetReg(rs2(inst))
	f3 := funct3(inst)
	f7 := funct7(inst)
	d := rd(inst)

	if f7 == 0x01 {
		c.execOpM(d, a, b, f3)
		return true
	}

	var result uint32
	switch f3 {
	case 0x0:
		if f7 == 0x20 {
			result = a - b
		} else {
			result = a + b
		}
	case 0x1:
		result = a << (b & 0x1F)
	case 0x2:
		if int32(a) < int32(b) {
			result = 1
		}
	case 0x3:
		if a < b {
			result = 1
		}
	case 0x4:
		result = a ^ b
	case 0x5:
		if f7 == 0x20 {
			result = uint32(int32(a) >> (b & 0x1F))
		} else {
			result = a >> (b & 0x1F)
		}
	case 0x6:
		result = a | b
	case 0x7:
		result = a & b
	default:
		c.illegalInstruction(inst)
		return false
	}
	c.SetReg(d, result)
	return true
}

func (c *CPU) execOpM(d, a, b, f3 uint32) {
	sa, sb := int32(a), int32(b)
	var result uint32
	switch f3 {
	case 0x0: // MUL
		result = a * b
	case 0x1: // MULH
		result = uint32((int64(sa) * int64(sb)) >> 32)
	case 0x2: // MULHSU
		result = uint32((int64(sa) * int64(uint64(b))) >> 32)
	case 0x3: // MULHU
		result = uint32((uint64(a) * uint64(b)) >> 32)
	case 0x4: // DIV
		switch {
		case b == 0:
			result = 0xFFFFFFFF
		case sa == -2147483648 && sb == -1:
			result = 0x80000000
		default:
			result = uint32(sa / sb)
		}
	case 0x5: // DIVU
		if b == 0 {
			result = 0xFFFFFFFF
		} else {
			result = a / b
		}
	case 0x6: // REM
		switch {
		case b == 0:
			result = a
		case sa == -2147483648 && sb == -1:
			result = 0
		default:
			result = uint32(sa % sb)
		}
	case 0x7: // REMU
		if b == 0 {
			result = a
		} else {
			result = a % b
		}
	}
	c.SetReg(d, result)
}

func (c *CPU) execOpImm(inst uint32) {
	a := c.GetReg(rs1(inst))
	imm := immI(inst)
	f3 := funct3(inst)
	d := rd(inst)
	var result uint32
	switch f3 {
	case 0x0:
		result = a + uint32(imm)
	case 0x1:
		result = a << (uint32(imm) & 0x1F)
	case 0x2:
		if int32(a) < imm {
			result = 1
		}
	case 0x3:
		if a < uint32(imm) {
			result = 1
		}
	case 0x4:
		result = a ^ uint32(imm)
	case 0x5:
		shamt := uint32(imm) & 0x1F
		if inst&(1<<30) != 0 {
			result = uint32(int32(a) >> shamt)
		} else {
			result = a >> shamt
		}
	case 0x6:
		result = a | uint32(imm)
	case 0x7:
		result = a & uint32(imm)
	}
	c.SetReg(d, result)
}

func (c *CPU) invalidateReservationOnAccess(addr uint32, isStore bool) {
	if !c.reservationValid {
		return
	}
	if isStore {
		if addr == c.reservationAddr {
			c.reservationValid = false
		}
	} else if addr != c.reservationAddr {
		c.reservationValid = false
	}
}

func (c *CPU) execLoad(inst uint32) bool {
	addr := c.GetReg(rs1(inst)) + uint32(immI(inst))
	f3 := funct3(inst)
	d := rd(inst)

	c.invalidateReservationOnAccess(addr, false)

	switch f3 {
	case 0x0: // LB
		c.SetReg(d, uint32(int32(int8(c.bus.Read8(addr)))))
	case 0x1: // LH
		c.SetReg(d, uint32(int32(int16(c.loadHalfAssembled(addr)))))
	case 0x2: // LW
		c.SetReg(d, c.loadWordAssembled(addr))
	case 0x4: // LBU
		c.SetReg(d, c.bus.Read8(addr))
	case 0x5: // LHU
		c.SetReg(d, c.loadHalfAssembled(addr))
	default:
		c.illegalInstruction(inst)
		return false
	}
	return true
}

// loadHalfAssembled always synthesizes a half-word via two byte reads so
// misaligned accesses behave identically to an explicit byte-at-a-time
// sequence, per spec.
func (c *CPU) loadHalfAssembled(addr uint32) uint32 {
	lo := c.bus.Read8(addr)
	hi := c.bus.Read8(addr + 1)
	return lo | (hi << 8)
}

func (c *CPU) loadWordAssembled(addr uint32) uint32 {
	if addr&0x3 == 0 {
		return c.bus.Read32(addr)
	}
	b0 := c.bus.Read8(addr)
	b1 := c.bus.Read8(addr + 1)
	b2 := c.bus.Read8(addr + 2)
	b3 := c.bus.Read8(addr + 3)
	return b0 | (b1 << 8) | (b2 << 16) | (b3 << 24)
}

func (c *CPU) execStore(inst uint32) bool {
	addr := c.GetReg(rs1(inst)) + uint32(immS(inst))
	val := c.GetReg(rs2(inst))
	f3 := funct3(inst)

	c.invalidateReservationOnAccess(addr, true)

	switch f3 {
	case 0x0: // SB
		c.bus.Write8(addr, val&0xFF)
	case 0x1: // SH
		c.storeHalfAssembled(addr, val)
	case 0x2: // SW
		c.storeWordAssembled(addr, val)
	default:
		c.illegalInstruction(inst)
		return false
	}
	return true
}

func (c *CPU) storeHalfAssembled(addr, val uint32) {
	c.bus.Write8(addr, val&0xFF)
	c.bus.Write8(addr+1, (val>>8)&0xFF)
}

func (c *CPU) storeWordAssembled(addr, val uint32) {
	if addr&0x3 == 0 {
		c.bus.Write32(addr, val)
		return
	}
	c.bus.Write8(addr, val&0xFF)
	c.bus.Write8(addr+1, (val>>8)&0xFF)
	c.bus.Write8(addr+2, (val>>16)&0xFF)
	c.bus.Write8(addr+3, (val>>24)&0xFF)
}

func (c *CPU) execBranch(inst uint32) {
	a := c.GetReg(rs1(inst))
	b := c.GetReg(rs2(inst))
	f3 := funct3(inst)
	var taken bool
	switch f3 {
	case 0x0: // BEQ
		taken = a == b
	case 0x1: // BNE
		taken = a != b
	case 0x4: // BLT
		taken = int32(a) < int32(b)
	case 0x5: // BGE
		taken = int32(a) >= int32(b)
	case 0x6: // BLTU
		taken = a < b
	case 0x7: // BGEU
		taken = a >= b
	default:
		c.illegalInstruction(inst)
		return
	}

	if taken {
		target := c.pc + uint32(immB(inst))
		if target&0x1 != 0 {
			c.takeTrap(causeInstructionAddressMisaligned, target)
			c.cycles++
			return
		}
		c.pc = target
	} else {
		c.pc += c.instLen
	}
	c.cycles++
}

func (c *CPU) execJal(inst uint32) {
	target := c.pc + uint32(immJ(inst))
	link := c.pc + c.instLen
	if target&0x1 != 0 {
		c.takeTrap(causeInstructionAddressMisaligned, target)
		c.cycles++
		return
	}
	c.SetReg(rd(inst), link)
	c.pc = target
	c.cycles++
}

func (c *CPU) execJalr(inst uint32) {
	link := c.pc + c.instLen
	target := (c.GetReg(rs1(inst)) + uint32(immI(inst))) &^ 1
	c.SetReg(rd(inst), link)
	c.pc = target
	c.cycles++
}

func (c *CPU) execCSR(inst uint32) {
	f3 := funct3(inst)
	addr := csrAddr(inst)
	d := rd(inst)

	var src uint32
	immediate := f3&0x4 != 0
	if immediate {
		src = rs1(inst) // zero-extended 5-bit immediate, carried in the rs1 field
	} else {
		src = c.GetReg(rs1(inst))
	}

	old := c.csrRead(addr)

	var writeVal uint32
	var doWrite bool
	switch f3 & 0x3 {
	case 0x1: // CSRRW / CSRRWI — always writes
		writeVal = src
		doWrite = true
	case 0x2: // CSRRS / CSRRSI — set bits, suppressed when source index is 0
		writeVal = old | src
		doWrite = rs1(inst) != 0
	case 0x3: // CSRRC / CSRRCI — clear bits, suppressed when source index is 0
		writeVal = old &^ src
		doWrite = rs1(inst) != 0
	default:
		c.illegalInstruction(inst)
		return
	}

	if doWrite {
		c.csrWrite(addr, writeVal)
	}
	c.SetReg(d, old)
}

func (c *CPU) execSystem(inst uint32) {
	funct12 := inst >> 20
	switch funct12 {
	case 0x000: // ECALL
		c.takeTrap(causeECallFromMMode, 0)
		c.cycles++
	case 0x001: // EBREAK
		c.takeTrap(causeBreakpoint, 0)
		c.cycles++
	case 0x302: // MRET
		c.mret()
		c.cycles++
	case 0x105: // WFI
		c.pc += c.instLen
		if c.mip&c.mie == 0 {
			c.wfi = true
		}
		c.cycles++
	default:
		c.illegalInstruction(inst)
	}
}

func (c *CPU) execAMO(inst uint32) {
	addr := c.GetReg(rs1(inst))
	if addr&0x3 != 0 {
		c.takeTrap(causeStoreAddressMisaligned, addr)
		c.cycles++
		return
	}

	f5 := funct5(inst)
	d := rd(inst)

	switch f5 {
	case 0x02: // LR.W
		val := c.bus.Read32(addr)
		c.reservationAddr = addr
		c.reservationValid = true
		c.SetReg(d, val)
		c.pc += c.instLen
		c.cycles++
		return
	case 0x03: // SC.W
		var result uint32 = 1
		if c.reservationValid && c.reservationAddr == addr {
			c.bus.Write32(addr, c.GetReg(rs2(inst)))
			result = 0
		}
		c.reservationValid = false
		c.SetReg(d, result)
		c.pc += c.instLen
		c.cycles++
		return
	}

	loaded := c.bus.Read32(addr)
	rs2v := c.GetReg(rs2(inst))
	var result uint32
	switch f5 {
	case 0x01: // AMOSWAP
		result = rs2v
	case 0x00: // AMOADD
		result = loaded + rs2v
	case 0x04: // AMOXOR
		result = loaded ^ rs2v
	case 0x0C: // AMOAND
		result = loaded & rs2v
	case 0x08: // AMOOR
		result = loaded | rs2v
	case 0x10: // AMOMIN
		if int32(loaded) < int32(rs2v) {
			result = loaded
		} else {
			result = rs2v
		}
	case 0x14: // AMOMAX
		if int32(loaded) > int32(rs2v) {
			result = loaded
		} else {
			result = rs2v
		}
	case 0x18: // AMOMINU
		if loaded < rs2v {
			result = loaded
		} else {
			result = rs2v
		}
	case 0x1C: // AMOMAXU
		if loaded > rs2v {
			result = loaded
		} else {
			result = rs2v
		}
	default:
		c.illegalInstruction(inst)
		return
	}

	c.invalidateReservationOnAccess(addr, true)
	c.bus.Write32(addr, result)
	c.SetReg(d, loaded)
	c.pc += c.instLen
	c.cycles++
}
