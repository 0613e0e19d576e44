// ethernet_test.go - ICMP/DHCP/TFTP embedded responder tests for the COSMO-32 emulator

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildIPv4Frame(dstMAC, srcMAC [6]byte, srcIP, dstIP [4]byte, proto byte, l4 []byte) []byte {
	pb := newPacketBuilder(ethHdrLen + ipHdrLen + len(l4))
	pb.writeBytes(dstMAC[:])
	pb.writeBytes(srcMAC[:])
	pb.writeU16BE(etherTypeIPv4)

	pb.writeU8(0x45)
	pb.writeU8(0)
	pb.writeU16BE(uint16(ipHdrLen + len(l4)))
	pb.writeU16BE(0)
	pb.writeU16BE(0)
	pb.writeU8(64)
	pb.writeU8(proto)
	pb.writeU16BE(0) // checksum, patched below
	pb.writeBytes(srcIP[:])
	pb.writeBytes(dstIP[:])
	pb.writeBytes(l4)

	frame := pb.bytes()
	recalcIPChecksum(frame)
	return frame
}

func buildUDP(srcPort, dstPort uint16, payload []byte) []byte {
	pb := newPacketBuilder(udpHdrLen + len(payload))
	pb.writeU16BE(srcPort)
	pb.writeU16BE(dstPort)
	pb.writeU16BE(uint16(udpHdrLen + len(payload)))
	pb.writeU16BE(0) // checksum, unused for IPv4
	pb.writeBytes(payload)
	return pb.bytes()
}

func buildICMPEchoRequest(id, seq uint16, payload []byte) []byte {
	pb := newPacketBuilder(icmpHdrLen + len(payload))
	pb.writeU8(icmpTypeEchoRequest)
	pb.writeU8(0)
	pb.writeU16BE(0) // checksum, patched below
	pb.writeU16BE(id)
	pb.writeU16BE(seq)
	pb.writeBytes(payload)
	buf := pb.bytes()
	cs := oneComplementChecksum(buf)
	buf[2] = byte(cs >> 8)
	buf[3] = byte(cs)
	return buf
}

func TestICMPEchoRequestGetsReplyWithSwappedAddresses(t *testing.T) {
	e := NewEthernet(NewBus(), nil, 0, t.TempDir())

	clientMAC := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	clientIP := [4]byte{10, 0, 0, 2}

	icmp := buildICMPEchoRequest(1, 1, []byte("ping"))
	frame := buildIPv4Frame(e.serverMAC, clientMAC, clientIP, e.serverIP, ipProtoICMP, icmp)

	e.processFrame(frame)

	if len(e.rxFIFO) != 1 {
		t.Fatalf("expected exactly one reply frame, got %d", len(e.rxFIFO))
	}
	reply := e.rxFIFO[0]

	if !bytes.Equal(reply[0:6], clientMAC[:]) {
		t.Errorf("reply dst MAC = %X, want client MAC %X", reply[0:6], clientMAC)
	}
	if !bytes.Equal(reply[6:12], e.serverMAC[:]) {
		t.Errorf("reply src MAC = %X, want server MAC %X", reply[6:12], e.serverMAC)
	}

	ipStart := ethHdrLen
	if !bytes.Equal(reply[ipStart+12:ipStart+16], e.serverIP[:]) {
		t.Errorf("reply src IP = %v, want server IP %v", reply[ipStart+12:ipStart+16], e.serverIP)
	}
	if !bytes.Equal(reply[ipStart+16:ipStart+20], clientIP[:]) {
		t.Errorf("reply dst IP = %v, want client IP %v", reply[ipStart+16:ipStart+20], clientIP)
	}

	icmpStart := ipStart + ipHdrLen
	if reply[icmpStart] != icmpTypeEchoReply {
		t.Errorf("reply ICMP type = %d, want %d (echo reply)", reply[icmpStart], icmpTypeEchoReply)
	}
	if oneComplementChecksum(reply[ipStart:ipStart+ipHdrLen]) != 0 {
		t.Errorf("reply IP header checksum does not validate")
	}
	if oneComplementChecksum(reply[icmpStart:]) != 0 {
		t.Errorf("reply ICMP checksum does not validate")
	}
}

func TestICMPNonEchoRequestIsIgnored(t *testing.T) {
	e := NewEthernet(NewBus(), nil, 0, t.TempDir())
	icmp := []byte{icmpTypeEchoReply, 0, 0, 0, 0, 0, 0, 0} // already a reply, not a request
	frame := buildIPv4Frame(e.serverMAC, [6]byte{1, 2, 3, 4, 5, 6}, [4]byte{10, 0, 0, 2}, e.serverIP, ipProtoICMP, icmp)
	e.processFrame(frame)
	if len(e.rxFIFO) != 0 {
		t.Errorf("an ICMP echo reply should never generate a synthesized reply")
	}
}

func buildDHCPPacket(clientMAC [6]byte, xid uint32, msgType byte) []byte {
	pb := newPacketBuilder(bootpFixedLen + 8)
	pb.writeU8(bootpOpRequest)
	pb.writeU8(1)
	pb.writeU8(6)
	pb.writeU8(0)
	pb.writeU32BE(xid)
	pb.writeU16BE(0)
	pb.writeU16BE(0)
	pb.writeZeros(4) // ciaddr
	pb.writeZeros(4) // yiaddr
	pb.writeZeros(4) // siaddr
	pb.writeZeros(4) // giaddr
	pb.writeBytes(clientMAC[:])
	pb.writeZeros(10)
	pb.writeZeros(64)
	pb.writeZeros(128)
	pb.writeBytes(dhcpMagicCookie[:])
	pb.writeU8(53)
	pb.writeU8(1)
	pb.writeU8(msgType)
	pb.writeU8(0xFF)
	return pb.bytes()
}

func TestDHCPDiscoverGetsOffer(t *testing.T) {
	e := NewEthernet(NewBus(), nil, 0, t.TempDir())
	clientMAC := [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	dhcp := buildDHCPPacket(clientMAC, 0xCAFEBABE, dhcpMsgDiscover)
	udp := buildUDP(udpPortDHCPClient, udpPortDHCPServer, dhcp)
	frame := buildIPv4Frame([6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, clientMAC, [4]byte{0, 0, 0, 0}, [4]byte{255, 255, 255, 255}, ipProtoUDP, udp)

	e.processFrame(frame)

	if len(e.rxFIFO) != 1 {
		t.Fatalf("expected one DHCPOFFER, got %d frames", len(e.rxFIFO))
	}
	reply := e.rxFIFO[0]
	payload := udpPayload(reply, ethHdrLen+ipHdrLen)
	opt, ok := findDHCPOption(payload, 53)
	if !ok || opt[0] != dhcpMsgOffer {
		t.Errorf("reply DHCP message type = %v, want OFFER (%d)", opt, dhcpMsgOffer)
	}
	if !bytes.Equal(reply[ethHdrLen+16:ethHdrLen+20], []byte{255, 255, 255, 255}) {
		t.Errorf("DHCPOFFER should still be broadcast, client has no IP yet")
	}
}

func TestDHCPRequestGetsAck(t *testing.T) {
	e := NewEthernet(NewBus(), nil, 0, t.TempDir())
	clientMAC := [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	dhcp := buildDHCPPacket(clientMAC, 0x11223344, dhcpMsgRequest)
	udp := buildUDP(udpPortDHCPClient, udpPortDHCPServer, dhcp)
	frame := buildIPv4Frame([6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, clientMAC, [4]byte{0, 0, 0, 0}, [4]byte{255, 255, 255, 255}, ipProtoUDP, udp)

	e.processFrame(frame)

	if len(e.rxFIFO) != 1 {
		t.Fatalf("expected one DHCPACK, got %d frames", len(e.rxFIFO))
	}
	payload := udpPayload(e.rxFIFO[0], ethHdrLen+ipHdrLen)
	opt, ok := findDHCPOption(payload, 53)
	if !ok || opt[0] != dhcpMsgAck {
		t.Errorf("reply DHCP message type = %v, want ACK (%d)", opt, dhcpMsgAck)
	}
	if got := uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7]); got != 0x11223344 {
		t.Errorf("xid = 0x%X, want the request's xid echoed back", got)
	}
}

func TestTFTPReadRoundTripReconstructsFileByteForByte(t *testing.T) {
	root := t.TempDir()
	want := make([]byte, 512*3+100) // spans four DATA blocks including a short final one
	for i := range want {
		want[i] = byte(i % 251)
	}
	if err := os.WriteFile(filepath.Join(root, "image.bin"), want, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	e := NewEthernet(NewBus(), nil, 0, root)
	clientMAC := [6]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	clientIP := [4]byte{10, 0, 0, 5}
	const clientPort = 50000

	rrq := append([]byte{0, tftpOpRRQ}, []byte("image.bin\x00octet\x00")...)
	udp := buildUDP(clientPort, udpPortTFTP, rrq)
	frame := buildIPv4Frame(e.serverMAC, clientMAC, clientIP, e.serverIP, ipProtoUDP, udp)
	e.processFrame(frame)

	var got []byte
	for i := 0; i < 10; i++ {
		if len(e.rxFIFO) != 1 {
			t.Fatalf("round %d: expected one queued DATA frame, got %d", i, len(e.rxFIFO))
		}
		data := e.rxFIFO[0]
		e.rxFIFO = nil

		payload := udpPayload(data, ethHdrLen+ipHdrLen)
		opcode := uint16(payload[0])<<8 | uint16(payload[1])
		block := uint16(payload[2])<<8 | uint16(payload[3])
		if opcode != tftpOpDATA {
			t.Fatalf("round %d: opcode = %d, want DATA", i, opcode)
		}
		chunk := payload[4:]
		got = append(got, chunk...)

		ack := make([]byte, 4)
		ack[0], ack[1] = 0, tftpOpACK
		ack[2], ack[3] = byte(block>>8), byte(block)
		ackUDP := buildUDP(clientPort, udpPortTFTP, ack)
		ackFrame := buildIPv4Frame(e.serverMAC, clientMAC, clientIP, e.serverIP, ipProtoUDP, ackUDP)
		e.processFrame(ackFrame)

		if len(chunk) < tftpBlockSize {
			break
		}
	}

	if !bytes.Equal(got, want) {
		t.Errorf("reconstructed file does not match: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestTFTPOutOfSequenceACKGetsIllegalOperationError(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "image.bin"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	e := NewEthernet(NewBus(), nil, 0, root)
	clientMAC := [6]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	clientIP := [4]byte{10, 0, 0, 5}
	const clientPort = 50001

	rrq := append([]byte{0, tftpOpRRQ}, []byte("image.bin\x00octet\x00")...)
	udp := buildUDP(clientPort, udpPortTFTP, rrq)
	frame := buildIPv4Frame(e.serverMAC, clientMAC, clientIP, e.serverIP, ipProtoUDP, udp)
	e.processFrame(frame)
	e.rxFIFO = nil // discard the initial DATA block 1

	// ACK block 99 instead of the expected block 1.
	ack := []byte{0, tftpOpACK, 0, 99}
	ackUDP := buildUDP(clientPort, udpPortTFTP, ack)
	ackFrame := buildIPv4Frame(e.serverMAC, clientMAC, clientIP, e.serverIP, ipProtoUDP, ackUDP)
	e.processFrame(ackFrame)

	if len(e.rxFIFO) != 1 {
		t.Fatalf("expected one queued ERROR frame, got %d", len(e.rxFIFO))
	}
	payload := udpPayload(e.rxFIFO[0], ethHdrLen+ipHdrLen)
	opcode := uint16(payload[0])<<8 | uint16(payload[1])
	code := uint16(payload[2])<<8 | uint16(payload[3])
	if opcode != tftpOpERROR {
		t.Errorf("opcode = %d, want ERROR", opcode)
	}
	if code != tftpErrIllegalOp {
		t.Errorf("error code = %d, want tftpErrIllegalOp (%d)", code, tftpErrIllegalOp)
	}
}
