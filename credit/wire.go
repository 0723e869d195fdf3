package credit

import (
	"encoding/binary"
	"fmt"
)

// CreditValueSize is the size of an encoded credit value.
const CreditValueSize = 2

// EncodeCredits encodes n as a 2-byte little-endian credit value.
func EncodeCredits(n uint16) []byte {
	return binary.LittleEndian.AppendUint16(make([]byte, 0, CreditValueSize), n)
}

// DecodeCredits decodes a 2-byte little-endian credit value.
func DecodeCredits(p []byte) (uint16, error) {
	if len(p) != CreditValueSize {
		return 0, fmt.Errorf("%w: length %d, want %d", ErrInvalidCreditValue, len(p), CreditValueSize)
	}

	return binary.LittleEndian.Uint16(p), nil
}
