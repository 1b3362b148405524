package resource

import "math/bits"

// BitString is a variable-length bit string kept in its minimal form: the
// stored bytes never carry a trailing run that could be stripped into the
// Unused count (RFC 3779 "IPAddress ::= BIT STRING", spec.md §4.1).
type BitString struct {
	Bytes  []byte
	Unused uint8 // count of don't-care low bits in the final byte, 0..7
}

// PrefixLen returns the number of significant bits, 8*len(Bytes) - Unused.
func (b BitString) PrefixLen() int {
	return 8*len(b.Bytes) - int(b.Unused)
}

// Expand copies b into a fixed-width buffer of the given length, filling the
// unused low bits of the final preserved byte and every byte beyond
// len(b.Bytes) with fill (0x00 for the "min" direction, 0xFF for "max").
func Expand(b BitString, length int, fill byte) []byte {
	out := make([]byte, length)
	n := copy(out, b.Bytes)
	if n > 0 && b.Unused > 0 {
		mask := byte(0xFF >> (8 - b.Unused))
		if fill == 0x00 {
			out[n-1] &^= mask
		} else {
			out[n-1] |= mask
		}
	}
	for i := n; i < length; i++ {
		out[i] = fill
	}
	return out
}

// PackPrefix builds the minimal BitString for a prefix of length
// prefixLen bits taken from addr.
func PackPrefix(addr []byte, prefixLen int) BitString {
	nbytes := (prefixLen + 7) / 8
	unused := 8*nbytes - prefixLen
	data := make([]byte, nbytes)
	copy(data, addr[:nbytes])
	if unused > 0 {
		mask := byte(0xFF >> (8 - unused))
		data[nbytes-1] &^= mask
	}
	return BitString{Bytes: data, Unused: uint8(unused)}
}

// PackMin builds the minimal BitString for the "min" side of a range:
// trailing 0x00 bytes are stripped, and Unused is the number of trailing
// zero bits in the final preserved byte.
func PackMin(addr []byte) BitString {
	n := len(addr)
	for n > 0 && addr[n-1] == 0x00 {
		n--
	}
	data := append([]byte(nil), addr[:n]...)
	var unused uint8
	if n > 0 {
		unused = uint8(bits.TrailingZeros8(data[n-1]))
	}
	return BitString{Bytes: data, Unused: unused}
}

// PackMax builds the minimal BitString for the "max" side of a range:
// trailing 0xFF bytes are stripped, and Unused is the number of trailing
// one bits in the final preserved byte.
func PackMax(addr []byte) BitString {
	n := len(addr)
	for n > 0 && addr[n-1] == 0xFF {
		n--
	}
	data := append([]byte(nil), addr[:n]...)
	var unused uint8
	if n > 0 {
		unused = uint8(bits.TrailingZeros8(^data[n-1]))
	}
	return BitString{Bytes: data, Unused: unused}
}
