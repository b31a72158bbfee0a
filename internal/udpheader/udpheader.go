// Package udpheader is a stand-alone UDP-header parser/serializer — a
// small utility the packet plane itself does not depend on, kept
// separate so it can be reused (and tested) independently of the
// router.
//
// Wire format, network byte order:
//
//	bytes 0-1: source port
//	bytes 2-3: destination port
//	bytes 4-5: total length (header + payload)
//	bytes 6-7: checksum
//	bytes 8+:  payload
package udpheader

import "fmt"

const headerSize = 8

// MaxPayload is the largest payload that still fits the 16-bit length
// field alongside the 8-byte header.
const MaxPayload = 0xffff - headerSize

// Header is a parsed UDP header plus its payload.
type Header struct {
	SourcePort      uint16
	DestinationPort uint16
	Checksum        uint16
	Payload         []byte
}

// Length reports the total on-wire length (header + payload).
func (h Header) Length() uint16 {
	return uint16(headerSize + len(h.Payload))
}

// Serialize encodes sport, dport, and payload into an 8-byte header
// followed by payload, network byte order, checksum field left zero.
// Fields are masked with & 0xff so the round trip holds for every port
// and payload, not just ones whose low nibble happens to equal the
// full byte.
func Serialize(sourcePort, destinationPort uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("udpheader: payload of %d bytes exceeds max %d", len(payload), MaxPayload)
	}

	length := uint16(headerSize + len(payload))
	buf := make([]byte, headerSize+len(payload))

	buf[0] = byte(sourcePort >> 8 & 0xff)
	buf[1] = byte(sourcePort & 0xff)
	buf[2] = byte(destinationPort >> 8 & 0xff)
	buf[3] = byte(destinationPort & 0xff)
	buf[4] = byte(length >> 8 & 0xff)
	buf[5] = byte(length & 0xff)
	buf[6] = 0
	buf[7] = 0
	copy(buf[headerSize:], payload)

	return buf, nil
}

// Parse extracts a Header from buf. It rejects buffers shorter than the
// 8-byte header, and rejects a buffer whose length disagrees with the
// header's own length field.
func Parse(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("udpheader: header is %d bytes, buffer is only %d bytes", headerSize, len(buf))
	}

	length := uint16(buf[4])<<8 | uint16(buf[5])
	if int(length) != len(buf) {
		return Header{}, fmt.Errorf("udpheader: buffer is %d bytes, header declares %d", len(buf), length)
	}

	payload := make([]byte, len(buf)-headerSize)
	copy(payload, buf[headerSize:])

	return Header{
		SourcePort:      uint16(buf[0])<<8 | uint16(buf[1]),
		DestinationPort: uint16(buf[2])<<8 | uint16(buf[3]),
		Checksum:        uint16(buf[6])<<8 | uint16(buf[7]),
		Payload:         payload,
	}, nil
}
