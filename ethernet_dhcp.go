// ethernet_dhcp.go - Embedded DHCP server for the COSMO-32 emulator

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
	bootpOpRequest = 1
	bootpOpReply   = 2

	bootpFixedLen  = 236
	dhcpMagicOff   = 236
	dhcpOptionsOff = 240

	dhcpMsgDiscover = 1
	dhcpMsgOffer    = 2
	dhcpMsgRequest  = 3
	dhcpMsgAck      = 5

	dhcpLeaseSeconds = 3600
)

var dhcpMagicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// findDHCPOption scans TLV options (each option is type, len, value bytes;
// 0xFF terminates) starting at dhcpOptionsOff within the BOOTP payload.
func findDHCPOption(payload []byte, opt byte) ([]byte, bool) {
	i := dhcpOptionsOff
	for i < len(payload) {
		t := payload[i]
		if t == 0xFF {
			break
		}
		if t == 0x00 {
			i++
			continue
		}
		if i+1 >= len(payload) {
			break
		}
		l := int(payload[i+1])
		start := i + 2
		end := start + l
		if end > len(payload) {
			break
		}
		if t == opt {
			return payload[start:end], true
		}
		i = end
	}
	return nil, false
}

func (e *Ethernet) processDHCP(frame []byte, udpStart int) {
	payload := udpPayload(frame, udpStart)
	if len(payload) < bootpFixedLen+4 {
		return
	}
	if payload[0] != bootpOpRequest {
		return
	}

	msgTypeOpt, ok := findDHCPOption(payload, 53)
	if !ok || len(msgTypeOpt) < 1 {
		return
	}

	var xid uint32 = uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7])
	var chaddr [6]byte
	copy(chaddr[:], payload[28:34])

	var replyType byte
	switch msgTypeOpt[0] {
	case dhcpMsgDiscover:
		replyType = dhcpMsgOffer
	case dhcpMsgRequest:
		replyType = dhcpMsgAck
	default:
		return
	}

	e.deliverFrame(e.buildDHCPReply(xid, chaddr, replyType))
}

func (e *Ethernet) buildDHCPReply(xid uint32, chaddr [6]byte, msgType byte) []byte {
	pb := newPacketBuilder(342)

	// Ethernet header.
	pb.writeBytes(chaddr[:])
	pb.writeBytes(e.serverMAC[:])
	pb.writeU16BE(etherTypeIPv4)

	// IP header (checksum recomputed after the fact).
	ipStart := len(pb.bytes())
	pb.writeU8(0x45) // version/IHL
	pb.writeU8(0)    // DSCP/ECN
	pb.writeU16BE(0) // total length, patched below
	pb.writeU16BE(0) // identification
	pb.writeU16BE(0) // flags/fragment
	pb.writeU8(64)   // TTL
	pb.writeU8(ipProtoUDP)
	pb.writeU16BE(0) // checksum, patched below
	pb.writeBytes(e.serverIP[:])
	pb.writeBytes([]byte{255, 255, 255, 255}) // broadcast, client has no IP yet

	// UDP header.
	udpStart := len(pb.bytes())
	pb.writeU16BE(udpPortDHCPServer)
	pb.writeU16BE(udpPortDHCPClient)
	pb.writeU16BE(0) // length, patched below
	pb.writeU16BE(0) // checksum (unused for IPv4)

	// BOOTP/DHCP body.
	pb.writeU8(bootpOpReply)
	pb.writeU8(1) // htype = Ethernet
	pb.writeU8(6) // hlen
	pb.writeU8(0) // hops
	pb.writeU32BE(xid)
	pb.writeU16BE(0) // secs
	pb.writeU16BE(0) // flags
	pb.writeBytes([]byte{0, 0, 0, 0})  // ciaddr
	pb.writeBytes(e.clientIP[:])       // yiaddr
	pb.writeBytes(e.serverIP[:])       // siaddr
	pb.writeBytes([]byte{0, 0, 0, 0})  // giaddr
	pb.writeBytes(chaddr[:])
	pb.writeZeros(10) // pad chaddr to 16
	pb.writeZeros(64) // sname
	pb.writeZeros(128) // file
	pb.writeBytes(dhcpMagicCookie[:])

	// Options: message type(53), server id(54), lease time(51), subnet mask(1), end(255).
	pb.writeU8(53)
	pb.writeU8(1)
	pb.writeU8(msgType)

	pb.writeU8(54)
	pb.writeU8(4)
	pb.writeBytes(e.serverIP[:])

	pb.writeU8(51)
	pb.writeU8(4)
	pb.writeU32BE(dhcpLeaseSeconds)

	pb.writeU8(1)
	pb.writeU8(4)
	pb.writeBytes(e.netmask[:])

	pb.writeU8(0xFF)

	buf := pb.bytes()

	udpLen := len(buf) - udpStart
	buf[udpStart+4] = byte(udpLen >> 8)
	buf[udpStart+5] = byte(udpLen)

	totalLen := len(buf) - ipStart
	buf[ipStart+2] = byte(totalLen >> 8)
	buf[ipStart+3] = byte(totalLen)

	recalcIPChecksum(buf)
	return buf
}
