package resource

import (
	"bytes"
	"sort"
)

// Canonicalize sorts and merges a single family's sequence in place (C4,
// spec.md §4.4). Families holding inherit, or an AFI this engine does not
// know the bit width of, are left untouched.
func (f *IPAddressFamily) Canonicalize() error {
	if f.Choice.Inherit {
		return nil
	}
	length, known := AddrLen(f.Key.AFI)
	if !known {
		return nil
	}
	f.Choice.Elements = sortElements(f.Choice.Elements, length)
	f.Choice.Elements = mergeElements(f.Choice.Elements, length)
	return nil
}

func sortElements(elems []IPAddressOrRange, length int) []IPAddressOrRange {
	sort.Slice(elems, func(i, j int) bool {
		aMin := elems[i].ExpandMin(length)
		bMin := elems[j].ExpandMin(length)
		if c := bytes.Compare(aMin, bMin); c != 0 {
			return c < 0
		}
		return elems[i].PrefixLen(length) < elems[j].PrefixLen(length)
	})
	return elems
}

// mergeElements implements the sweep of spec.md §4.4 step 3, including the
// corrected merge test from spec.md §9 (b's range max expanded with 0xFF
// fill, not min expanded with both fills).
func mergeElements(elems []IPAddressOrRange, length int) []IPAddressOrRange {
	i := 0
	for i < len(elems)-1 {
		a := elems[i]
		b := elems[i+1]
		aMin := a.ExpandMin(length)
		aMax := a.ExpandMax(length)
		bMin := b.ExpandMin(length)
		bMax := b.ExpandMax(length)

		if bytes.Compare(aMax, bMax) >= 0 {
			// b ⊆ a: drop b, re-examine i.
			elems = append(elems[:i+1], elems[i+2:]...)
			continue
		}

		bMinMinusOne, ok := decrementBytes(bMin)
		if ok && bytes.Compare(aMax, bMinMinusOne) >= 0 {
			merged := mergeElement(aMin, bMax, length)
			elems[i] = merged
			elems = append(elems[:i+1], elems[i+2:]...)
			continue
		}
		i++
	}
	return elems
}

func mergeElement(min, max []byte, length int) IPAddressOrRange {
	if plen, ok := RangeToPrefix(min, max); ok {
		bs := PackPrefix(min, plen)
		return IPAddressOrRange{Prefix: &bs}
	}
	return IPAddressOrRange{Range: &IPAddressRange{Min: PackMin(min), Max: PackMax(max)}}
}

// decrementBytes returns in-1 as a same-length big-endian byte string,
// borrow-propagating across the whole width. ok is false if in was all
// zero (there is no representable predecessor).
func decrementBytes(in []byte) ([]byte, bool) {
	out := append([]byte(nil), in...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0 {
			out[i]--
			return out, true
		}
		out[i] = 0xFF
	}
	return out, false
}

// Canonicalize canonicalizes every family and then sorts the family list by
// key (C4 step 4, spec.md §4.4).
func (b *IPAddrBlocks) Canonicalize() error {
	for _, f := range b.Families {
		if err := f.Canonicalize(); err != nil {
			return err
		}
	}
	sort.Slice(b.Families, func(i, j int) bool {
		return b.Families[i].Key.Less(b.Families[j].Key)
	})
	return nil
}

// IsCanonical reports whether the family already satisfies spec.md §3's
// ordering, non-overlap, non-adjacency and non-collapsible-range
// invariants, without mutating it.
func (f *IPAddressFamily) IsCanonical() bool {
	if f.Choice.Inherit {
		return len(f.Choice.Elements) == 0
	}
	length, known := AddrLen(f.Key.AFI)
	if !known {
		return true
	}
	elems := f.Choice.Elements
	for idx, e := range elems {
		if e.Range != nil {
			if _, ok := RangeToPrefix(Expand(e.Range.Min, length, 0x00), Expand(e.Range.Max, length, 0xFF)); ok {
				return false
			}
		}
		if idx == 0 {
			continue
		}
		prev := elems[idx-1]
		prevMax := prev.ExpandMax(length)
		curMin := e.ExpandMin(length)
		if bytes.Compare(prev.ExpandMin(length), curMin) >= 0 {
			return false
		}
		inc, ok := incrementBytes(prevMax)
		if !ok {
			return false // prevMax is the top of the address space but is followed by more elements
		}
		if bytes.Compare(inc, curMin) >= 0 {
			return false // adjacent or overlapping
		}
	}
	return true
}

// IsCanonical reports whether every family, and the family ordering itself,
// already satisfies the canonical form.
func (b *IPAddrBlocks) IsCanonical() bool {
	for idx, f := range b.Families {
		if !f.IsCanonical() {
			return false
		}
		if idx > 0 && !b.Families[idx-1].Key.Less(f.Key) {
			return false
		}
	}
	return true
}

func incrementBytes(in []byte) ([]byte, bool) {
	out := append([]byte(nil), in...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out, true
		}
		out[i] = 0x00
	}
	return out, false
}

// GetRange returns the fully expanded [min,max] of the i'th element of a
// family, for diagnostics and tests (grounded on X509v3_addr_get_range in
// the original implementation).
func (f *IPAddressFamily) GetRange(i int) (min, max []byte, ok bool) {
	length, known := AddrLen(f.Key.AFI)
	if !known || i < 0 || i >= len(f.Choice.Elements) {
		return nil, nil, false
	}
	e := f.Choice.Elements[i]
	return e.ExpandMin(length), e.ExpandMax(length), true
}
