package protocol

import "testing"

func TestFloat32Bytes(t *testing.T) {
	testCases := []struct {
		value float32
		want  [4]byte
	}{
		{value: 1.0, want: [4]byte{0x3F, 0x80, 0x00, 0x00}},
		{value: -2.0, want: [4]byte{0xC0, 0x00, 0x00, 0x00}},
		{value: 0, want: [4]byte{0x00, 0x00, 0x00, 0x00}},
	}

	for _, tc := range testCases {
		if got := Float32Bytes(tc.value); got != tc.want {
			t.Errorf("Float32Bytes(%v) = % X, want % X", tc.value, got, tc.want)
		}
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	for _, v := range []float32{1527.608, 1565.503, 1550, 0.5, -40.25} {
		b := Float32Bytes(v)
		if got := Float32FromBytes(b[:]); got != v {
			t.Errorf("round trip of %v gave %v", v, got)
		}
	}
}
