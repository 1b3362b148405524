// Package rfc3779 ties the resource package's canonical sets to their wire
// form, configuration text form, diagnostic text form, and chain validator
// (C6-C8 plus the ASN.1 codec, spec.md §6). The ASN.1 DER tag/length
// machinery itself is an external collaborator (spec.md §1); this package
// interfaces with it through the standard library's encoding/asn1, the
// same way the surrounding certificate library is expected to.
package rfc3779

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/rpki-toolkit/rfc3779/resource"
)

// Extension OIDs, spec.md §6.
var (
	OIDIPAddrBlocks  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 7}
	OIDASIdentifiers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 8}
)

// Universal ASN.1 tags used to discriminate CHOICE arms by their
// already-distinct underlying types (no explicit context tagging needed
// for the inner CHOICEs, per RFC 3779 §2.2.3/§3.2.3).
const (
	tagNull     = 5
	tagInteger  = 2
	tagBitStr   = 3
	tagSequence = 16
)

var nullDER = []byte{tagNull, 0x00}

type derIPAddressFamily struct {
	AddressFamily   []byte
	IPAddressChoice asn1.RawValue
}

// MarshalIPAddrBlocks encodes a canonical IPAddrBlocks to its DER wire form.
func MarshalIPAddrBlocks(b *resource.IPAddrBlocks) ([]byte, error) {
	fams := make([]derIPAddressFamily, 0, len(b.Families))
	for _, f := range b.Families {
		choiceDER, err := marshalIPAddressChoice(f.Choice)
		if err != nil {
			return nil, fmt.Errorf("rfc3779: marshal family afi=%d: %w", f.Key.AFI, err)
		}
		fams = append(fams, derIPAddressFamily{
			AddressFamily:   f.Key.Bytes(),
			IPAddressChoice: asn1.RawValue{FullBytes: choiceDER},
		})
	}
	return asn1.Marshal(fams)
}

func marshalIPAddressChoice(c resource.IPAddressChoice) ([]byte, error) {
	if c.Inherit {
		return nullDER, nil
	}
	elems := make([]asn1.RawValue, 0, len(c.Elements))
	for _, e := range c.Elements {
		b, err := marshalIPAddressOrRange(e)
		if err != nil {
			return nil, err
		}
		elems = append(elems, asn1.RawValue{FullBytes: b})
	}
	return asn1.Marshal(elems)
}

func marshalIPAddressOrRange(e resource.IPAddressOrRange) ([]byte, error) {
	if e.Prefix != nil {
		return asn1.Marshal(toASN1BitString(*e.Prefix))
	}
	type ipRange struct{ Min, Max asn1.BitString }
	return asn1.Marshal(ipRange{toASN1BitString(e.Range.Min), toASN1BitString(e.Range.Max)})
}

func toASN1BitString(bs resource.BitString) asn1.BitString {
	return asn1.BitString{Bytes: bs.Bytes, BitLength: bs.PrefixLen()}
}

func fromASN1BitString(bs asn1.BitString) resource.BitString {
	return resource.BitString{Bytes: bs.Bytes, Unused: uint8(8*len(bs.Bytes) - bs.BitLength)}
}

// ParseIPAddrBlocks decodes an IPAddrBlocks extension value. The result is
// not canonicalized; callers that need the canonical form must call
// Canonicalize themselves (spec.md §5 lifecycle note).
func ParseIPAddrBlocks(der []byte) (*resource.IPAddrBlocks, error) {
	var raws []derIPAddressFamily
	if _, err := asn1.Unmarshal(der, &raws); err != nil {
		return nil, fmt.Errorf("rfc3779: parse IPAddrBlocks: %w", err)
	}
	out := &resource.IPAddrBlocks{}
	for _, raw := range raws {
		key, err := parseFamilyKey(raw.AddressFamily)
		if err != nil {
			return nil, err
		}
		choice, err := unmarshalIPAddressChoice(raw.IPAddressChoice.FullBytes)
		if err != nil {
			return nil, fmt.Errorf("rfc3779: family afi=%d: %w", key.AFI, err)
		}
		out.Families = append(out.Families, &resource.IPAddressFamily{Key: key, Choice: choice})
	}
	return out, nil
}

func parseFamilyKey(b []byte) (resource.FamilyKey, error) {
	switch len(b) {
	case 2:
		return resource.FamilyKey{AFI: uint16(b[0])<<8 | uint16(b[1])}, nil
	case 3:
		safi := b[2]
		return resource.FamilyKey{AFI: uint16(b[0])<<8 | uint16(b[1]), SAFI: &safi}, nil
	default:
		return resource.FamilyKey{}, fmt.Errorf("rfc3779: invalid address family key length %d", len(b))
	}
}

func unmarshalIPAddressChoice(raw []byte) (resource.IPAddressChoice, error) {
	var v asn1.RawValue
	if _, err := asn1.Unmarshal(raw, &v); err != nil {
		return resource.IPAddressChoice{}, err
	}
	switch v.Tag {
	case tagNull:
		return resource.IPAddressChoice{Inherit: true}, nil
	case tagSequence:
		var raws []asn1.RawValue
		if _, err := asn1.Unmarshal(raw, &raws); err != nil {
			return resource.IPAddressChoice{}, err
		}
		elems := make([]resource.IPAddressOrRange, 0, len(raws))
		for _, r := range raws {
			e, err := unmarshalIPAddressOrRange(r.FullBytes)
			if err != nil {
				return resource.IPAddressChoice{}, err
			}
			elems = append(elems, e)
		}
		return resource.IPAddressChoice{Elements: elems}, nil
	default:
		return resource.IPAddressChoice{}, fmt.Errorf("rfc3779: unexpected IPAddressChoice tag %d", v.Tag)
	}
}

func unmarshalIPAddressOrRange(raw []byte) (resource.IPAddressOrRange, error) {
	var v asn1.RawValue
	if _, err := asn1.Unmarshal(raw, &v); err != nil {
		return resource.IPAddressOrRange{}, err
	}
	switch v.Tag {
	case tagBitStr:
		var bs asn1.BitString
		if _, err := asn1.Unmarshal(raw, &bs); err != nil {
			return resource.IPAddressOrRange{}, err
		}
		rbs := fromASN1BitString(bs)
		return resource.IPAddressOrRange{Prefix: &rbs}, nil
	case tagSequence:
		var rg struct{ Min, Max asn1.BitString }
		if _, err := asn1.Unmarshal(raw, &rg); err != nil {
			return resource.IPAddressOrRange{}, err
		}
		return resource.IPAddressOrRange{Range: &resource.IPAddressRange{
			Min: fromASN1BitString(rg.Min),
			Max: fromASN1BitString(rg.Max),
		}}, nil
	default:
		return resource.IPAddressOrRange{}, fmt.Errorf("rfc3779: unexpected IPAddressOrRange tag %d", v.Tag)
	}
}

// MarshalASIdentifiers encodes an ASIdentifiers extension to DER.
func MarshalASIdentifiers(a *resource.ASIdentifiers) ([]byte, error) {
	var fields []asn1.RawValue
	if a.AsNum != nil {
		wrapped, err := marshalExplicitASChoice(0, a.AsNum)
		if err != nil {
			return nil, fmt.Errorf("rfc3779: marshal asnum: %w", err)
		}
		fields = append(fields, asn1.RawValue{FullBytes: wrapped})
	}
	if a.RDI != nil {
		wrapped, err := marshalExplicitASChoice(1, a.RDI)
		if err != nil {
			return nil, fmt.Errorf("rfc3779: marshal rdi: %w", err)
		}
		fields = append(fields, asn1.RawValue{FullBytes: wrapped})
	}
	return asn1.Marshal(fields)
}

func marshalExplicitASChoice(tag int, c *resource.ASIdentifierChoice) ([]byte, error) {
	inner, err := marshalASIdentifierChoice(c)
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tag, IsCompound: true, Bytes: inner})
}

func marshalASIdentifierChoice(c *resource.ASIdentifierChoice) ([]byte, error) {
	if c.Inherit {
		return nullDER, nil
	}
	elems := make([]asn1.RawValue, 0, len(c.Elements))
	for _, e := range c.Elements {
		b, err := marshalASIdOrRange(e)
		if err != nil {
			return nil, err
		}
		elems = append(elems, asn1.RawValue{FullBytes: b})
	}
	return asn1.Marshal(elems)
}

func marshalASIdOrRange(e resource.ASIdOrRange) ([]byte, error) {
	if e.ID != nil {
		return asn1.Marshal(e.ID)
	}
	type asRange struct{ Min, Max *big.Int }
	return asn1.Marshal(asRange{e.Range.Min, e.Range.Max})
}

// ParseASIdentifiers decodes an ASIdentifiers extension value. Like
// ParseIPAddrBlocks, the result is not canonicalized.
func ParseASIdentifiers(der []byte) (*resource.ASIdentifiers, error) {
	var raws []asn1.RawValue
	if _, err := asn1.Unmarshal(der, &raws); err != nil {
		return nil, fmt.Errorf("rfc3779: parse ASIdentifiers: %w", err)
	}
	out := &resource.ASIdentifiers{}
	for _, r := range raws {
		if r.Class != asn1.ClassContextSpecific {
			continue
		}
		var inner asn1.RawValue
		if _, err := asn1.Unmarshal(r.Bytes, &inner); err != nil {
			return nil, fmt.Errorf("rfc3779: unwrap explicit tag %d: %w", r.Tag, err)
		}
		choice, err := unmarshalASIdentifierChoice(inner.FullBytes)
		if err != nil {
			return nil, err
		}
		switch r.Tag {
		case 0:
			out.AsNum = choice
		case 1:
			out.RDI = choice
		}
	}
	return out, nil
}

func unmarshalASIdentifierChoice(raw []byte) (*resource.ASIdentifierChoice, error) {
	var v asn1.RawValue
	if _, err := asn1.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch v.Tag {
	case tagNull:
		return &resource.ASIdentifierChoice{Inherit: true}, nil
	case tagSequence:
		var raws []asn1.RawValue
		if _, err := asn1.Unmarshal(raw, &raws); err != nil {
			return nil, err
		}
		c := &resource.ASIdentifierChoice{}
		for _, r := range raws {
			e, err := unmarshalASIdOrRange(r.FullBytes)
			if err != nil {
				return nil, err
			}
			c.Elements = append(c.Elements, e)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("rfc3779: unexpected ASIdentifierChoice tag %d", v.Tag)
	}
}

func unmarshalASIdOrRange(raw []byte) (resource.ASIdOrRange, error) {
	var v asn1.RawValue
	if _, err := asn1.Unmarshal(raw, &v); err != nil {
		return resource.ASIdOrRange{}, err
	}
	switch v.Tag {
	case tagInteger:
		var id *big.Int
		if _, err := asn1.Unmarshal(raw, &id); err != nil {
			return resource.ASIdOrRange{}, err
		}
		return resource.ASIdOrRange{ID: id}, nil
	case tagSequence:
		var rg struct{ Min, Max *big.Int }
		if _, err := asn1.Unmarshal(raw, &rg); err != nil {
			return resource.ASIdOrRange{}, err
		}
		return resource.ASIdOrRange{Range: &resource.ASRange{Min: rg.Min, Max: rg.Max}}, nil
	default:
		return resource.ASIdOrRange{}, fmt.Errorf("rfc3779: unexpected ASIdOrRange tag %d", v.Tag)
	}
}
