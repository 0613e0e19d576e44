// device_ethernet.go - Ethernet MAC with descriptor-ring DMA for the COSMO-32 emulator

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

// Register offsets within the Ethernet MAC's 4KB window.
const (
	ethMACCR    = 0x0000
	ethDMAOMR   = 0x0004
	ethDMATDLAR = 0x0008
	ethDMARDLAR = 0x000C
	ethDMASR    = 0x0010
	ethDMATPDR  = 0x0014
	ethMACA0HR  = 0x0018
	ethMACA0LR  = 0x001C
)

const (
	ethMACCR_TE = 1 << 0
	ethMACCR_RE = 1 << 1

	ethOMR_ST = 1 << 1
	ethOMR_SR = 1 << 2

	ethSR_TS = 1 << 0
	ethSR_RS = 1 << 1
)

// descOWN etc. are bit positions within a 16-byte descriptor's first
// word, shared by TX and RX rings.
const (
	descOWN   = 1 << 31
	descIC    = 1 << 30 // TX only: interrupt on completion
	descCHAIN = 1 << 20 // use the Next field instead of Addr+16
	descFS    = 1 << 9  // RX only: first segment
	descLS    = 1 << 8  // RX only: last segment
)

const descSize = 16

// Ethernet implements the TX/RX descriptor rings and owns the embedded
// protocol responder (ethernet_protocol.go, ethernet_tftp.go).
type Ethernet struct {
	bus *Bus

	maccr  uint32
	omr    uint32
	sr     uint32
	txDesc uint32
	rxDesc uint32

	serverMAC [6]byte
	serverIP  [4]byte
	clientIP  [4]byte
	netmask   [4]byte

	rxFIFO [][]byte // frames synthesized by the protocol module, awaiting an RX descriptor

	tftpRoot string
	sessions map[uint16]*tftpSession

	// Scratch offsets recorded by writeL2L3L4Header for finalizeUDP to patch
	// once a reply's payload length is known (ethernet_tftp.go).
	lastHeaderIPStart  int
	lastHeaderUDPStart int

	pfic    *PFIC
	irqLine int
}

// Synthetic-network constants (spec §6).
var (
	defaultServerMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	defaultServerIP  = [4]byte{10, 0, 0, 1}
	defaultClientIP  = [4]byte{10, 0, 0, 2}
	defaultNetmask   = [4]byte{255, 255, 255, 0}
)

func NewEthernet(bus *Bus, pfic *PFIC, irqLine int, tftpRoot string) *Ethernet {
	e := &Ethernet{
		bus:       bus,
		serverMAC: defaultServerMAC,
		serverIP:  defaultServerIP,
		clientIP:  defaultClientIP,
		netmask:   defaultNetmask,
		tftpRoot:  tftpRoot,
		sessions:  make(map[uint16]*tftpSession),
		pfic:      pfic,
		irqLine:   irqLine,
	}
	return e
}

func (e *Ethernet) Read(off uint32, width Width) uint32 {
	switch off {
	case ethMACCR:
		return e.maccr
	case ethDMAOMR:
		return e.omr
	case ethDMASR:
		return e.sr
	case ethDMATDLAR:
		return e.txDesc
	case ethDMARDLAR:
		return e.rxDesc
	case ethMACA0HR:
		return uint32(e.serverMAC[0]) | uint32(e.serverMAC[1])<<8
	case ethMACA0LR:
		return uint32(e.serverMAC[2]) | uint32(e.serverMAC[3])<<8 |
			uint32(e.serverMAC[4])<<16 | uint32(e.serverMAC[5])<<24
	}
	return 0
}

func (e *Ethernet) Write(off uint32, width Width, value uint32) {
	switch off {
	case ethMACCR:
		e.maccr = value
	case ethDMAOMR:
		e.omr = value
	case ethDMASR:
		e.sr &^= value
	case ethDMATDLAR:
		e.txDesc = value
	case ethDMARDLAR:
		e.rxDesc = value
	case ethDMATPDR:
		e.processTX()
	}
}

type descView struct {
	addr           uint32
	status, size, bufAddr, next uint32
}

func (e *Ethernet) readDesc(addr uint32) descView {
	return descView{
		addr:    addr,
		status:  e.bus.Read32(addr + 0),
		size:    e.bus.Read32(addr + 4),
		bufAddr: e.bus.Read32(addr + 8),
		next:    e.bus.Read32(addr + 12),
	}
}

func (e *Ethernet) writeDescStatus(addr, status uint32) {
	e.bus.Write32(addr, status)
}

func (e *Ethernet) nextDescAddr(d descView) uint32 {
	if d.status&descCHAIN != 0 {
		return d.next
	}
	return d.addr + descSize
}

// processTX walks the TX ring from the current descriptor pointer while
// TE and ST are both set and OWN=1, synthesizing any protocol replies.
func (e *Ethernet) processTX() {
	if e.maccr&ethMACCR_TE == 0 || e.omr&ethOMR_ST == 0 {
		return
	}
	addr := e.txDesc
	for i := 0; i < 64 && addr != 0; i++ {
		d := e.readDesc(addr)
		if d.status&descOWN == 0 {
			break
		}
		length := d.size & 0xFFFF
		frame := make([]byte, length)
		for j := uint32(0); j < length; j++ {
			frame[j] = byte(e.bus.Read8(d.bufAddr + j))
		}

		e.writeDescStatus(addr, d.status&^descOWN)
		e.sr |= ethSR_TS
		if d.status&descIC != 0 {
			if e.pfic != nil {
				e.pfic.RaiseLine(e.irqLine)
			}
		}

		e.processFrame(frame)

		addr = e.nextDescAddr(d)
	}
}

// deliverFrame enqueues a synthesized reply frame for RX delivery.
func (e *Ethernet) deliverFrame(frame []byte) {
	e.rxFIFO = append(e.rxFIFO, frame)
}

// Tick drains at most one queued RX frame into the current RX descriptor per
// call, when RE and SR are both set and that descriptor's OWN bit is set.
func (e *Ethernet) Tick(cycles uint64) (Interrupt, bool) {
	if len(e.rxFIFO) == 0 {
		return Interrupt{}, false
	}
	if e.maccr&ethMACCR_RE == 0 || e.omr&ethOMR_SR == 0 {
		return Interrupt{}, false
	}
	d := e.readDesc(e.rxDesc)
	if d.status&descOWN == 0 {
		return Interrupt{}, false
	}

	frame := e.rxFIFO[0]
	e.rxFIFO = e.rxFIFO[1:]

	bufSize := d.size & 0xFFFF
	n := uint32(len(frame))
	if n > bufSize {
		n = bufSize
	}
	for j := uint32(0); j < n; j++ {
		e.bus.Write8(d.bufAddr+j, uint32(frame[j]))
	}

	status := descFS | descLS | (n << 16)
	e.writeDescStatus(d.addr, status)
	e.sr |= ethSR_RS
	e.rxDesc = e.nextDescAddr(d)

	if e.pfic != nil {
		e.pfic.RaiseLine(e.irqLine)
	}
	return Interrupt{Cause: uint32(e.irqLine)}, true
}
