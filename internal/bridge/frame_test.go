package bridge

import (
	"testing"
	"time"
)

// TestDecodeAddr_Exhaustive checks every possible raw address byte: even
// bytes write, odd bytes read, and the device address is the raw value
// shifted down one bit.
func TestDecodeAddr_Exhaustive(t *testing.T) {
	for raw := 0; raw < 256; raw++ {
		dir, addr := DecodeAddr(byte(raw))

		wantDir := Write
		if raw%2 != 0 {
			wantDir = Read
		}
		if dir != wantDir {
			t.Errorf("DecodeAddr(0x%02x) direction = %v, want %v", raw, dir, wantDir)
		}
		if addr != byte(raw>>1) {
			t.Errorf("DecodeAddr(0x%02x) address = 0x%02x, want 0x%02x", raw, addr, raw>>1)
		}
		if addr > 127 {
			t.Errorf("DecodeAddr(0x%02x) address = %d, exceeds 7 bits", raw, addr)
		}
	}
}

func TestDecodeTerminator(t *testing.T) {
	if got := decodeTerminator('S'); got != RepeatedStart {
		t.Errorf("decodeTerminator('S') = %v, want RepeatedStart", got)
	}
	for _, b := range []byte{0x00, 'P', 0xff, 's', 'T'} {
		if got := decodeTerminator(b); got != Stop {
			t.Errorf("decodeTerminator(0x%02x) = %v, want Stop", b, got)
		}
	}
}

func TestFrameTimeout(t *testing.T) {
	tests := []struct {
		name string
		baud int
		want time.Duration
	}{
		{"default baud floors at the deployment constant", 9600, minFrameTimeout},
		{"high baud floors at the deployment constant", 115200, minFrameTimeout},
		{"unset baud uses the floor", 0, minFrameTimeout},
		{"negative baud uses the floor", -1, minFrameTimeout},
		{"very slow line gets 15 bit periods", 10, 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameTimeout(tt.baud); got != tt.want {
				t.Errorf("FrameTimeout(%d) = %v, want %v", tt.baud, got, tt.want)
			}
		})
	}
}

// TestFrameTimeout_CoversBitPeriods asserts the protocol requirement that
// the bound always exceeds 15 bit periods of the configured line rate.
func TestFrameTimeout_CoversBitPeriods(t *testing.T) {
	for _, baud := range []int{10, 300, 1200, 9600, 19200, 115200} {
		bound := FrameTimeout(baud)
		bits := 15 * time.Second / time.Duration(baud)
		if bound < bits {
			t.Errorf("FrameTimeout(%d) = %v, below 15 bit periods (%v)", baud, bound, bits)
		}
	}
}

func TestFrameString(t *testing.T) {
	f := Frame{Dir: Read, Addr: 0x2a, Length: 5, Term: RepeatedStart}
	want := "read addr=0x2a len=5 term=repeated start"
	if got := f.String(); got != want {
		t.Errorf("Frame.String() = %q, want %q", got, want)
	}
}
