package resource

import "bytes"

// IANA AFI values this engine understands natively (spec.md §3).
const (
	AFIIPv4 uint16 = 1
	AFIIPv6 uint16 = 2
)

// AddrLen returns the fixed raw-address width for afi (4 or 16 bytes) and
// whether afi is one this engine can canonicalize at the bit level.
// Unknown AFIs are stored and round-tripped but never reordered or merged.
func AddrLen(afi uint16) (int, bool) {
	switch afi {
	case AFIIPv4:
		return 4, true
	case AFIIPv6:
		return 16, true
	default:
		return 0, false
	}
}

// AFI names, spec.md §3.
var afiNames = map[uint16]string{
	AFIIPv4: "IPv4",
	AFIIPv6: "IPv6",
}

// AFIName returns the printable name for an AFI value, or false if unknown.
func AFIName(afi uint16) (string, bool) {
	name, ok := afiNames[afi]
	return name, ok
}

// SAFI names, spec.md §3.
var safiNames = map[uint8]string{
	1:   "Unicast",
	2:   "Multicast",
	3:   "Unicast/Multicast",
	4:   "MPLS",
	64:  "Tunnel",
	65:  "VPLS",
	66:  "BGP-MDT",
	128: "MPLS-labeled-VPN",
}

// SAFIName returns the printable name for a SAFI value, or false if unknown.
func SAFIName(safi uint8) (string, bool) {
	name, ok := safiNames[safi]
	return name, ok
}

// FamilyKey is the 2- or 3-byte opaque address family key: AFI, optionally
// followed by a SAFI byte.
type FamilyKey struct {
	AFI  uint16
	SAFI *uint8
}

// Bytes renders the key in its wire form: big-endian AFI, optional SAFI.
func (k FamilyKey) Bytes() []byte {
	if k.SAFI != nil {
		return []byte{byte(k.AFI >> 8), byte(k.AFI), *k.SAFI}
	}
	return []byte{byte(k.AFI >> 8), byte(k.AFI)}
}

// Equal reports whether two keys are the same family.
func (k FamilyKey) Equal(o FamilyKey) bool {
	return bytes.Equal(k.Bytes(), o.Bytes())
}

// Less orders keys lexicographically by their wire bytes; a key that is a
// byte-prefix of another sorts first (spec.md §3 invariant 4).
func (k FamilyKey) Less(o FamilyKey) bool {
	return bytes.Compare(k.Bytes(), o.Bytes()) < 0
}

// IPAddressRange is a closed interval of bit-string addresses.
type IPAddressRange struct {
	Min BitString
	Max BitString
}

// IPAddressOrRange is the IPAddressOrRange CHOICE: exactly one of Prefix or
// Range is set.
type IPAddressOrRange struct {
	Prefix *BitString
	Range  *IPAddressRange
}

// IsPrefix reports whether this element is a single prefix.
func (e IPAddressOrRange) IsPrefix() bool { return e.Prefix != nil }

// ExpandMin returns the fully expanded minimum address of the element.
func (e IPAddressOrRange) ExpandMin(length int) []byte {
	if e.Prefix != nil {
		return Expand(*e.Prefix, length, 0x00)
	}
	return Expand(e.Range.Min, length, 0x00)
}

// ExpandMax returns the fully expanded maximum address of the element.
func (e IPAddressOrRange) ExpandMax(length int) []byte {
	if e.Prefix != nil {
		return Expand(*e.Prefix, length, 0xFF)
	}
	return Expand(e.Range.Max, length, 0xFF)
}

// PrefixLen returns the element's prefix length as used for sort
// tie-breaking: a range counts as a full-length prefix (spec.md §4.4 step 1).
func (e IPAddressOrRange) PrefixLen(length int) int {
	if e.Prefix != nil {
		return e.Prefix.PrefixLen()
	}
	return 8 * length
}

// IPAddressChoice is the IPAddressChoice CHOICE: either Inherit is set, or
// Elements holds an ordered sequence, never both (spec.md §3 invariant 5).
type IPAddressChoice struct {
	Inherit  bool
	Elements []IPAddressOrRange
}

// Inherits reports whether this choice is the inherit sentinel.
func (c IPAddressChoice) Inherits() bool { return c.Inherit }

// IPAddressFamily pairs an address family key with its resource choice.
type IPAddressFamily struct {
	Key    FamilyKey
	Choice IPAddressChoice
}

// IPAddrBlocks is the ordered sequence of IPAddressFamily values carried by
// the IP address delegation extension.
type IPAddrBlocks struct {
	Families []*IPAddressFamily
}

// FindOrCreateFamily returns the family for (afi,safi), creating an empty
// one if absent (C3, spec.md §4.3).
func (b *IPAddrBlocks) FindOrCreateFamily(afi uint16, safi *uint8) *IPAddressFamily {
	key := FamilyKey{AFI: afi, SAFI: safi}
	for _, f := range b.Families {
		if f.Key.Equal(key) {
			return f
		}
	}
	f := &IPAddressFamily{Key: key}
	b.Families = append(b.Families, f)
	return f
}

// AddInherit installs the inherit sentinel on (afi,safi). Idempotent if
// already inherit; fails with ErrInvalidInheritance if the family already
// holds explicit resources.
func (b *IPAddrBlocks) AddInherit(afi uint16, safi *uint8) error {
	f := b.FindOrCreateFamily(afi, safi)
	if f.Choice.Inherit {
		return nil
	}
	if len(f.Choice.Elements) > 0 {
		return &FamilyError{AFI: afi, SAFI: safi, Err: ErrInvalidInheritance}
	}
	f.Choice.Inherit = true
	return nil
}

// AddPrefix appends a prefix element to (afi,safi)'s sequence.
func (b *IPAddrBlocks) AddPrefix(afi uint16, safi *uint8, addr []byte, prefixLen int) error {
	f := b.FindOrCreateFamily(afi, safi)
	if f.Choice.Inherit {
		return &FamilyError{AFI: afi, SAFI: safi, Err: ErrInvalidInheritance}
	}
	bs := PackPrefix(addr, prefixLen)
	f.Choice.Elements = append(f.Choice.Elements, IPAddressOrRange{Prefix: &bs})
	return nil
}

// AddRange appends a range element to (afi,safi)'s sequence, collapsing it
// to a prefix first if C2 shows it is one. Callers must supply min <= max
// byte-lexicographically; AddRange does not reorder a supplied pair.
func (b *IPAddrBlocks) AddRange(afi uint16, safi *uint8, min, max []byte) error {
	f := b.FindOrCreateFamily(afi, safi)
	if f.Choice.Inherit {
		return &FamilyError{AFI: afi, SAFI: safi, Err: ErrInvalidInheritance}
	}
	if plen, ok := RangeToPrefix(min, max); ok {
		bs := PackPrefix(min, plen)
		f.Choice.Elements = append(f.Choice.Elements, IPAddressOrRange{Prefix: &bs})
		return nil
	}
	f.Choice.Elements = append(f.Choice.Elements, IPAddressOrRange{
		Range: &IPAddressRange{Min: PackMin(min), Max: PackMax(max)},
	})
	return nil
}
