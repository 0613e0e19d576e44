// decode.go - RV32IMAC instruction decode for the COSMO-32 emulator

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

// Pure, side-effect-free functions over a 32-bit instruction word: field
// extraction, sign-extended immediate forms, and the 16-to-32-bit RVC
// expander. Nothing here touches CPU or bus state.
package main

// Opcode classes (inst[6:0]).
const (
	opLoad    = 0x03
	opMiscMem = 0x0F
	opOpImm   = 0x13
	opAuipc   = 0x17
	opStore   = 0x23
	opAmo     = 0x2F
	opOp      = 0x33
	opLui     = 0x37
	opBranch  = 0x63
	opJalr    = 0x67
	opJal     = 0x6F
	opSystem  = 0x73
)

func opcode(inst uint32) uint32 { return inst & 0x7F }
func rd(inst uint32) uint32     { return (inst >> 7) & 0x1F }
func funct3(inst uint32) uint32 { return (inst >> 12) & 0x7 }
func rs1(inst uint32) uint32    { return (inst >> 15) & 0x1F }
func rs2(inst uint32) uint32    { return (inst >> 20) & 0x1F }
func funct7(inst uint32) uint32 { return (inst >> 25) & 0x7F }
func funct5(inst uint32) uint32 { return (inst >> 27) & 0x1F }
func csrAddr(inst uint32) uint32 { return (inst >> 20) & 0xFFF }

func immI(inst uint32) int32 {
	return int32(inst) >> 20
}

func immS(inst uint32) int32 {
	v := ((inst >> 25) << 5) | ((inst >> 7) & 0x1F)
	return signExtend(v, 12)
}

func immB(inst uint32) int32 {
	v := ((inst >> 31) << 12) |
		(((inst >> 7) & 0x1) << 11) |
		(((inst >> 25) & 0x3F) << 5) |
		(((inst >> 8) & 0xF) << 1)
	return signExtend(v, 13)
}

func immU(inst uint32) int32 {
	return int32(inst & 0xFFFFF000)
}

func immJ(inst uint32) int32 {
	v := ((inst >> 31) << 20) |
		(((inst >> 12) & 0xFF) << 12) |
		(((inst >> 20) & 0x1) << 11) |
		(((inst >> 21) & 0x3FF) << 1)
	return signExtend(v, 21)
}

// signExtend treats the low `bits` bits of v as a two's-complement value.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func isCompressed(inst uint32) bool {
	return inst&0x3 != 0x3
}

// expandCompressed maps a legal 16-bit RVC encoding to its equivalent 32-bit
// instruction. It returns 0 for reserved/illegal encodings; callers must
// treat a zero result as an illegal instruction at the original address.
func expandCompressed(c uint16) uint32 {
	quadrant := c & 0x3
	funct3 := (c >> 13) & 0x7

	switch quadrant {
	case 0:
		switch funct3 {
		case 0x0: // C.ADDI4SPN
			imm := ((c >> 7) & 0x30) | ((c >> 1) & 0x3C0) | ((c >> 4) & 0x4) | ((c >> 2) & 0x8)
			rdp := 8 + ((c >> 2) & 0x7)
			if imm == 0 {
				return 0
			}
			return encodeI(opOpImm, uint32(rdp), 0, 2, uint32(imm))
		case 0x2: // C.LW
			imm := ((c >> 4) & 0x4) | ((c << 1) & 0x40) | ((c >> 7) & 0x38)
			rs1p := 8 + ((c >> 7) & 0x7)
			rdp := 8 + ((c >> 2) & 0x7)
			return encodeI(opLoad, uint32(rdp), 2, uint32(rs1p), uint32(imm))
		case 0x6: // C.SW
			imm := ((c >> 4) & 0x4) | ((c << 1) & 0x40) | ((c >> 7) & 0x38)
			rs1p := 8 + ((c >> 7) & 0x7)
			rs2p := 8 + ((c >> 2) & 0x7)
			return encodeS(opStore, 2, uint32(rs1p), uint32(rs2p), uint32(imm))
		}
		return 0

	case 1:
		switch funct3 {
		case 0x0: // C.NOP / C.ADDI
			r := (c >> 7) & 0x1F
			imm := uint32(signExtend(uint32(((c>>7)&0x20)|((c>>2)&0x1F)), 6))
			return encodeI(opOpImm, uint32(r), 0, uint32(r), imm)
		case 0x1: // C.JAL (RV32 only)
			imm := cjImm(c)
			return encodeJ(opJal, 1, imm)
		case 0x2: // C.LI
			r := (c >> 7) & 0x1F
			imm := uint32(signExtend(uint32(((c>>7)&0x20)|((c>>2)&0x1F)), 6))
			if r == 0 {
				return 0
			}
			return encodeI(opOpImm, uint32(r), 0, 0, imm)
		case 0x3:
			r := (c >> 7) & 0x1F
			if r == 2 { // C.ADDI16SP
				imm := uint32(signExtend(uint32(((c>>3)&0x200)|((c>>2)&0x10)|((c<<1)&0x40)|((c<<4)&0x180)|((c<<3)&0x20)), 10))
				if imm == 0 {
					return 0
				}
				return encodeI(opOpImm, 2, 0, 2, imm)
			}
			// C.LUI
			imm := uint32(signExtend(((uint32(c)<<5)&0x20000)|((uint32(c)<<10)&0x1F000), 18))
			if r == 0 || imm == 0 {
				return 0
			}
			return encodeU(opLui, uint32(r), imm)
		case 0x4:
			funct2 := (c >> 10) & 0x3
			rdp := 8 + ((c >> 7) & 0x7)
			switch funct2 {
			case 0x0: // C.SRLI
				shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1F)
				return encodeI(opOpImm, uint32(rdp), 5, uint32(rdp), uint32(shamt))
			case 0x1: // C.SRAI
				shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1F)
				return encodeI(opOpImm, uint32(rdp), 5, uint32(rdp), uint32(shamt)|(0x20<<5))
			case 0x2: // C.ANDI
				imm := uint32(signExtend(uint32(((c>>7)&0x20)|((c>>2)&0x1F)), 6))
				return encodeI(opOpImm, uint32(rdp), 7, uint32(rdp), imm)
			case 0x3:
				rs2p := 8 + ((c >> 2) & 0x7)
				funct1 := (c >> 12) & 0x1
				funct2b := (c >> 5) & 0x3
				if funct1 == 0 {
					switch funct2b {
					case 0x0: // C.SUB
						return encodeR(opOp, uint32(rdp), 0, uint32(rdp), uint32(rs2p), 0x20)
					case 0x1: // C.XOR
						return encodeR(opOp, uint32(rdp), 4, uint32(rdp), uint32(rs2p), 0)
					case 0x2: // C.OR
						return encodeR(opOp, uint32(rdp), 6, uint32(rdp), uint32(rs2p), 0)
					case 0x3: // C.AND
						return encodeR(opOp, uint32(rdp), 7, uint32(rdp), uint32(rs2p), 0)
					}
				}
				return 0
			}
		case 0x5: // C.J
			imm := cjImm(c)
			return encodeJ(opJal, 0, imm)
		case 0x6: // C.BEQZ
			rs1p := 8 + ((c >> 7) & 0x7)
			imm := cbImm(c)
			return encodeB(opBranch, 0, uint32(rs1p), 0, imm)
		case 0x7: // C.BNEZ
			rs1p := 8 + ((c >> 7) & 0x7)
			imm := cbImm(c)
			return encodeB(opBranch, 1, uint32(rs1p), 0, imm)
		}
		return 0

	case 2:
		switch funct3 {
		case 0x0: // C.SLLI
			r := (c >> 7) & 0x1F
			shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1F)
			if r == 0 {
				return 0
			}
			return encodeI(opOpImm, uint32(r), 1, uint32(r), uint32(shamt))
		case 0x2: // C.LWSP
			r := (c >> 7) & 0x1F
			imm := ((c >> 7) & 0x20) | ((c >> 2) & 0x1C) | ((c << 4) & 0xC0)
			if r == 0 {
				return 0
			}
			return encodeI(opLoad, uint32(r), 2, 2, uint32(imm))
		case 0x4:
			bit12 := (c >> 12) & 0x1
			rdRs1 := (c >> 7) & 0x1F
			rs2f := (c >> 2) & 0x1F
			if bit12 == 0 {
				if rs2f == 0 { // C.JR
					if rdRs1 == 0 {
						return 0
					}
					return encodeI(opJalr, 0, 0, uint32(rdRs1), 0)
				}
				// C.MV
				if rdRs1 == 0 {
					return 0
				}
				return encodeR(opOp, uint32(rdRs1), 0, 0, uint32(rs2f), 0)
			}
			if rs2f == 0 {
				if rdRs1 == 0 { // C.EBREAK
					return encodeSystem(1)
				}
				// C.JALR
				return encodeI(opJalr, 1, 0, uint32(rdRs1), 0)
			}
			if rdRs1 == 0 {
				return 0
			}
			// C.ADD
			return encodeR(opOp, uint32(rdRs1), 0, uint32(rdRs1), uint32(rs2f), 0)
		case 0x6: // C.SWSP
			imm := ((c >> 7) & 0x3C) | ((c >> 1) & 0xC0)
			rs2p := (c >> 2) & 0x1F
			return encodeS(opStore, 2, 2, uint32(rs2p), uint32(imm))
		}
		return 0
	}
	return 0
}

func cjImm(c uint16) int32 {
	v := ((uint32(c) >> 1) & 0x800) |
		((uint32(c) << 2) & 0x400) |
		((uint32(c) >> 1) & 0x300) |
		((uint32(c) << 1) & 0x80) |
		((uint32(c) >> 1) & 0x40) |
		((uint32(c) << 3) & 0x20) |
		((uint32(c) >> 7) & 0x10) |
		((uint32(c) >> 2) & 0xE)
	return signExtend(v, 12)
}

func cbImm(c uint16) int32 {
	v := ((uint32(c) >> 4) & 0x100) |
		((uint32(c) << 1) & 0xC0) |
		((uint32(c) << 3) & 0x20) |
		((uint32(c) >> 7) & 0x18) |
		((uint32(c) >> 2) & 0x6)
	return signExtend(v, 9)
}

func encodeR(op, d, f3, s1, s2, f7 uint32) uint32 {
	return (f7 << 25) | (s2 << 20) | (s1 << 15) | (f3 << 12) | (d << 7) | op
}

func encodeI(op, d, f3, s1, imm uint32) uint32 {
	return ((imm & 0xFFF) << 20) | (s1 << 15) | (f3 << 12) | (d << 7) | op
}

func encodeS(op, f3, s1, s2, imm uint32) uint32 {
	return (((imm >> 5) & 0x7F) << 25) | (s2 << 20) | (s1 << 15) | (f3 << 12) | ((imm & 0x1F) << 7) | op
}

func encodeB(op, f3, s1, s2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (((u >> 12) & 0x1) << 31) | (((u >> 5) & 0x3F) << 25) | (s2 << 20) | (s1 << 15) | (f3 << 12) |
		(((u >> 1) & 0xF) << 8) | (((u >> 11) & 0x1) << 7) | op
}

func encodeU(op, d, imm uint32) uint32 {
	return (imm & 0xFFFFF000) | (d << 7) | op
}

func encodeJ(op, d uint32, imm int32) uint32 {
	u := uint32(imm)
	return (((u >> 20) & 0x1) << 31) | (((u >> 1) & 0x3FF) << 21) | (((u >> 11) & 0x1) << 20) |
		(((u >> 12) & 0xFF) << 12) | (d << 7) | op
}

func encodeSystem(funct12 uint32) uint32 {
	return (funct12 << 20) | opSystem
}
