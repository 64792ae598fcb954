package davis

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

const (
	// FrameLength is the fixed over-the-air payload length, including the
	// check value and the two trailing bytes used by repeaters.
	FrameLength = 10
	// PayloadLength is the number of leading bytes always covered by the CRC.
	PayloadLength = 6

	crcOffset      = PayloadLength
	repeaterOffset = 8
)

// crcTable is CRC-16/XMODEM: poly 0x1021, zero init, MSB first.
var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// MatchKind reports which checksum layout a frame satisfied.
type MatchKind int

const (
	NoMatch MatchKind = iota
	DirectMatch
	RepeaterMatch
)

func (m MatchKind) String() string {
	switch m {
	case DirectMatch:
		return "direct"
	case RepeaterMatch:
		return "repeater"
	default:
		return "none"
	}
}

// Frame is a frame in receive bit order.
type Frame [FrameLength]byte

// StationID returns the transmitter id carried in bits 0-2 of the first byte.
func (f Frame) StationID() uint8 {
	return f[0] & 0x07
}

// PacketType returns the upper nibble of the first byte.
func (f Frame) PacketType() PacketType {
	return PacketType(f[0] >> 4)
}

// CheckValue returns the transmitted CRC.
func (f Frame) CheckValue() uint16 {
	return binary.BigEndian.Uint16(f[crcOffset:])
}

// CRC16 continues a CCITT CRC (poly 0x1021, MSB first) from crc over buf.
func CRC16(buf []byte, crc uint16) uint16 {
	return crc16.Update(crc, buf, crcTable)
}

// Validate checks the frame against the direct layout (bytes 0-5) and, if that
// fails, against the repeater layout, which extends the same CRC over bytes
// 8-9. A zero check value never matches.
func Validate(f Frame) MatchKind {
	rx := f.CheckValue()
	if rx == 0 {
		return NoMatch
	}

	calc := CRC16(f[:crcOffset], 0)
	if calc == rx {
		return DirectMatch
	}

	if CRC16(f[repeaterOffset:], calc) == rx {
		return RepeaterMatch
	}
	return NoMatch
}

// EncodeFrame builds a frame from the six leading payload bytes. A zero
// repeater produces a direct frame with 0xFFFF trailing bytes; otherwise the
// repeater routing bytes are written at offset 8 and included in the CRC.
func EncodeFrame(payload [PayloadLength]byte, repeater [2]byte, relayed bool) Frame {
	var f Frame
	copy(f[:], payload[:])

	if relayed {
		copy(f[repeaterOffset:], repeater[:])
		crc := CRC16(f[repeaterOffset:], CRC16(f[:crcOffset], 0))
		binary.BigEndian.PutUint16(f[crcOffset:], crc)
		return f
	}

	f[repeaterOffset] = 0xFF
	f[repeaterOffset+1] = 0xFF
	binary.BigEndian.PutUint16(f[crcOffset:], CRC16(f[:crcOffset], 0))
	return f
}

// ReverseBits swaps the bit order of a byte. Transmitters send LSB first.
func ReverseBits(b byte) byte {
	b = ((b & 0xF0) >> 4) | ((b & 0x0F) << 4)
	b = ((b & 0xCC) >> 2) | ((b & 0x33) << 2)
	b = ((b & 0xAA) >> 1) | ((b & 0x55) << 1)
	return b
}

// FromAir converts raw over-the-air bytes into a Frame.
func FromAir(raw [FrameLength]byte) (f Frame) {
	for idx, b := range raw {
		f[idx] = ReverseBits(b)
	}
	return f
}

// ToAir is the inverse of FromAir.
func ToAir(f Frame) (raw [FrameLength]byte) {
	for idx, b := range f {
		raw[idx] = ReverseBits(b)
	}
	return raw
}
