package resource

// maskToBits maps a contiguous low-bit mask (2^k - 1, k in [1,7]) to k.
var maskToBits = map[byte]int{
	0x01: 1,
	0x03: 2,
	0x07: 3,
	0x0F: 4,
	0x1F: 5,
	0x3F: 6,
	0x7F: 7,
}

// RangeToPrefix decides whether the closed byte range [min,max] (both of
// the same length) is expressible as a single prefix, per spec.md §4.2. It
// returns the prefix length and true if so.
func RangeToPrefix(min, max []byte) (int, bool) {
	length := len(min)

	i := length
	for k := 0; k < length; k++ {
		if min[k] != max[k] {
			i = k
			break
		}
	}

	j := -1
	for k := length - 1; k >= 0; k-- {
		if min[k] != 0x00 || max[k] != 0xFF {
			j = k
			break
		}
	}

	if j == -1 {
		// every byte satisfies min==0x00 && max==0xFF: the full address
		// space, i.e. the /0 prefix.
		return 0, true
	}
	if i < j {
		return 0, false
	}
	if i > j {
		return 8 * i, true
	}

	// i == j: the ranges agree on a common prefix of whole bytes and differ
	// only within byte i.
	mask := min[i] ^ max[i]
	k, ok := maskToBits[mask]
	if !ok {
		return 0, false
	}
	if (min[i]&mask) != 0 || (max[i]&mask) != mask {
		return 0, false
	}
	return 8*i + (8 - k), true
}
