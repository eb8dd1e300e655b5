package protocol

import "github.com/sigurn/crc8"

// CRCParams is the CRC-8 used by the filter bus protocol: polynomial
// x^8+x^2+x+1, initial value 0, no reflection, no final xor.
var CRCParams = crc8.CRC8

var crcTable = crc8.MakeTable(CRCParams)

// CRC8 calculates the CRC-8 checksum of data.
func CRC8(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// crc8Update continues a checksum over more data. The preset has no final
// xor, so a finished CRC8 is a valid running value.
func crc8Update(crc byte, data []byte) byte {
	return crc8.Update(crc, data, crcTable)
}

// frameCRC is the CRC of a frame seeded with its address-and-direction byte.
func frameCRC(dirAddr byte, frame []byte) byte {
	return crc8Update(CRC8([]byte{dirAddr}), frame)
}
