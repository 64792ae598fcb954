package davis

import "testing"

var (
	directFrame = Frame{0x80, 0x00, 0xd8, 0x2d, 0x71, 0x07, 0x76, 0xf8, 0xff, 0xff}
	directID2   = Frame{0x52, 0x06, 0x6b, 0x28, 0x00, 0x01, 0x4e, 0xda, 0xff, 0xff}
	relayed     = Frame{0x81, 0x04, 0x9e, 0x3b, 0x21, 0x09, 0xd8, 0xc8, 0x8a, 0x31}
)

func TestCRC16(t *testing.T) {
	if got := CRC16([]byte("123456789"), 0); got != 0x31C3 {
		t.Errorf("CRC16() = %#04x, want 0x31c3", got)
	}

	// Continuing the accumulator must equal a single pass.
	whole := CRC16(relayed[:8], 0)
	split := CRC16(relayed[6:8], CRC16(relayed[:6], 0))
	if whole != split {
		t.Errorf("continued CRC = %#04x, single pass = %#04x", split, whole)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  MatchKind
	}{
		{"direct", directFrame, DirectMatch},
		{"direct id 2", directID2, DirectMatch},
		{"repeater", relayed, RepeaterMatch},
		{"all zero", Frame{}, NoMatch},
		{"zero check value", Frame{0x80, 0x00, 0xd8, 0x2d, 0x71, 0x07, 0x00, 0x00, 0xff, 0xff}, NoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.frame); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateMutations(t *testing.T) {
	for _, base := range []Frame{directFrame, directID2, relayed} {
		for idx := 0; idx < 8; idx++ {
			for bit := 0; bit < 8; bit++ {
				f := base
				f[idx] ^= 1 << bit
				if got := Validate(f); got != NoMatch {
					t.Errorf("frame %x with byte %d bit %d flipped: Validate() = %v, want none", base[:], idx, bit, got)
				}
			}
		}
	}
}

func TestValidateTrailingBytes(t *testing.T) {
	for idx := repeaterOffset; idx < FrameLength; idx++ {
		for bit := 0; bit < 8; bit++ {
			f := relayed
			f[idx] ^= 1 << bit
			if got := Validate(f); got != NoMatch {
				t.Errorf("relayed frame with byte %d bit %d flipped: Validate() = %v, want none", idx, bit, got)
			}

			// Direct frames don't cover the trailing bytes.
			f = directFrame
			f[idx] ^= 1 << bit
			if got := Validate(f); got != DirectMatch {
				t.Errorf("direct frame with byte %d bit %d flipped: Validate() = %v, want direct", idx, bit, got)
			}
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	var payload [PayloadLength]byte
	copy(payload[:], directFrame[:PayloadLength])
	if got := EncodeFrame(payload, [2]byte{}, false); got != directFrame {
		t.Errorf("EncodeFrame(direct) = %x, want %x", got[:], directFrame[:])
	}

	copy(payload[:], relayed[:PayloadLength])
	got := EncodeFrame(payload, [2]byte{0x8a, 0x31}, true)
	if got != relayed {
		t.Errorf("EncodeFrame(relayed) = %x, want %x", got[:], relayed[:])
	}
	if Validate(got) == DirectMatch {
		t.Errorf("relayed frame must not validate as direct")
	}
}

func TestFrameFields(t *testing.T) {
	if id := directID2.StationID(); id != 2 {
		t.Errorf("StationID() = %d, want 2", id)
	}
	if pt := directFrame.PacketType(); pt != PacketTemp {
		t.Errorf("PacketType() = %v, want %v", pt, PacketTemp)
	}
	if cv := directFrame.CheckValue(); cv != 0x76f8 {
		t.Errorf("CheckValue() = %#04x, want 0x76f8", cv)
	}
}

func TestReverseBits(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{0x00, 0x00},
		{0x01, 0x80},
		{0x0F, 0xF0},
		{0xA5, 0xA5},
		{0x12, 0x48},
	}
	for _, tt := range tests {
		if got := ReverseBits(tt.in); got != tt.want {
			t.Errorf("ReverseBits(%#02x) = %#02x, want %#02x", tt.in, got, tt.want)
		}
	}

	if got := FromAir(ToAir(relayed)); got != relayed {
		t.Errorf("FromAir(ToAir(f)) = %x, want %x", got[:], relayed[:])
	}
}
