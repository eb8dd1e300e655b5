package protocol

import (
	"encoding/binary"
	"math"
)

// Float32Bytes encodes f as IEEE-754 single precision in network byte
// order. The bit pattern is laid out explicitly, independent of host order.
func Float32Bytes(f float32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
	return b
}

// Float32FromBytes decodes a big-endian IEEE-754 single.
func Float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}
