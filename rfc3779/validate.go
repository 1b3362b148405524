package rfc3779

import (
	"bytes"
	"fmt"

	"github.com/rpki-toolkit/rfc3779/resource"
)

// ResourceCertificate is the slice of a certificate that path validation
// needs: its decoded (not necessarily canonicalized by the caller, though
// Validate* assumes canonical form) resource extensions. A nil pointer
// models a certificate that carries neither extension at all, distinct
// from one that carries the extension with an empty sequence.
type ResourceCertificate struct {
	IPAddrBlocks  *resource.IPAddrBlocks
	ASIdentifiers *resource.ASIdentifiers
}

// VerifyCallback mirrors the verify_cb convention C8 is grounded on: it is
// invoked once per detected violation with the chain depth at which the
// violation was found and the error describing it. Returning false aborts
// the walk immediately with that error; returning true lets the walk
// continue past it, accumulating further violations under the same rule.
type VerifyCallback func(depth int, err error) bool

// report runs cb for a detected violation. A nil callback is treated as
// fail-closed: path validation without a caller-supplied policy aborts on
// the first violation rather than silently accepting a chain it could not
// actually verify.
func report(cb VerifyCallback, depth int, err error) bool {
	if cb == nil {
		return false
	}
	return cb(depth, err)
}

// ValidateIP walks chain (leaf first, trust anchor last) and checks that
// the (afi,safi) resources of each certificate nest inside its issuer's,
// with inherit propagating the child's claim up the chain until an
// ancestor states the resources explicitly (C8, spec.md §4.8).
func ValidateIP(chain []*ResourceCertificate, afi uint16, safi *uint8, cb VerifyCallback) error {
	if len(chain) == 0 {
		return nil
	}
	length, known := resource.AddrLen(afi)
	if !known {
		return fmt.Errorf("rfc3779: cannot validate unknown afi %d", afi)
	}

	leafChoice, leafHas := ipFamilyChoice(chain[0], afi, safi)
	if !leafHas {
		return nil
	}
	child := leafChoice.Elements
	inherit := leafChoice.Inherit
	if inherit {
		child = nil
	}

	if len(chain) == 1 {
		if inherit {
			if !report(cb, 0, ErrUnnestedResource) {
				return ErrUnnestedResource
			}
		}
		return nil
	}

	for i := 1; i < len(chain); i++ {
		isRoot := i == len(chain)-1
		choice, has := ipFamilyChoice(chain[i], afi, safi)
		if !has {
			if len(child) > 0 || inherit {
				if !report(cb, i, ErrUnnestedResource) {
					return ErrUnnestedResource
				}
			}
			continue
		}
		if choice.Inherit {
			if isRoot {
				if !report(cb, i, ErrUnnestedResource) {
					return ErrUnnestedResource
				}
			}
			continue
		}
		if inherit {
			child = choice.Elements
			inherit = false
			continue
		}
		if !ipContains(choice.Elements, child, length) {
			if !report(cb, i, ErrUnnestedResource) {
				return ErrUnnestedResource
			}
		}
		child = choice.Elements
	}
	return nil
}

// ipFamilyChoice locates (afi,safi) within cert's IPAddrBlocks. The second
// result is false only when cert carries no IPAddrBlocks extension at all;
// a cert that has the extension but does not list this family is treated
// as explicitly claiming the empty set for it.
func ipFamilyChoice(cert *ResourceCertificate, afi uint16, safi *uint8) (resource.IPAddressChoice, bool) {
	if cert == nil || cert.IPAddrBlocks == nil {
		return resource.IPAddressChoice{}, false
	}
	key := resource.FamilyKey{AFI: afi, SAFI: safi}
	for _, f := range cert.IPAddrBlocks.Families {
		if f.Key.Equal(key) {
			return f.Choice, true
		}
	}
	return resource.IPAddressChoice{}, true
}

// ipContains reports whether every element of child is covered by some
// element of parent. Both slices must already be in canonical (sorted,
// merged) form; the check is then a single O(|parent|+|child|) merge-walk
// rather than a per-element scan of parent (C8, spec.md §4.8).
func ipContains(parent, child []resource.IPAddressOrRange, length int) bool {
	p := 0
	for _, c := range child {
		cMin := c.ExpandMin(length)
		cMax := c.ExpandMax(length)
		for p < len(parent) && bytes.Compare(parent[p].ExpandMax(length), cMax) < 0 {
			p++
		}
		if p >= len(parent) {
			return false
		}
		if bytes.Compare(parent[p].ExpandMin(length), cMin) > 0 {
			return false
		}
	}
	return true
}

// ValidateAS walks chain and checks nesting of AS number resources, the
// same algorithm as ValidateIP applied to arbitrary-precision AS ranges
// instead of bit-string addresses (C8, spec.md §4.8).
func ValidateAS(chain []*ResourceCertificate, cb VerifyCallback) error {
	return validateASChoice(chain, cb, func(a *resource.ASIdentifiers) *resource.ASIdentifierChoice {
		return a.AsNum
	})
}

// ValidateRDI walks chain and checks nesting of Routing Domain Identifier
// resources. RDI is a second, independent instance of the ASIdentifierChoice
// carried alongside AS numbers (spec.md §3); the original specification
// names only the AS-number algorithm, but the identical CHOICE shape makes
// the same walk apply verbatim.
func ValidateRDI(chain []*ResourceCertificate, cb VerifyCallback) error {
	return validateASChoice(chain, cb, func(a *resource.ASIdentifiers) *resource.ASIdentifierChoice {
		return a.RDI
	})
}

func validateASChoice(chain []*ResourceCertificate, cb VerifyCallback, pick func(*resource.ASIdentifiers) *resource.ASIdentifierChoice) error {
	if len(chain) == 0 {
		return nil
	}

	leafChoice, leafHas := asChoiceOf(chain[0], pick)
	if !leafHas {
		return nil
	}
	child := leafChoice.Elements
	inherit := leafChoice.Inherit
	if inherit {
		child = nil
	}

	if len(chain) == 1 {
		if inherit {
			if !report(cb, 0, ErrUnnestedResource) {
				return ErrUnnestedResource
			}
		}
		return nil
	}

	for i := 1; i < len(chain); i++ {
		isRoot := i == len(chain)-1
		choice, has := asChoiceOf(chain[i], pick)
		if !has {
			if len(child) > 0 || inherit {
				if !report(cb, i, ErrUnnestedResource) {
					return ErrUnnestedResource
				}
			}
			continue
		}
		if choice.Inherit {
			if isRoot {
				if !report(cb, i, ErrUnnestedResource) {
					return ErrUnnestedResource
				}
			}
			continue
		}
		if inherit {
			child = choice.Elements
			inherit = false
			continue
		}
		if !asContains(choice.Elements, child) {
			if !report(cb, i, ErrUnnestedResource) {
				return ErrUnnestedResource
			}
		}
		child = choice.Elements
	}
	return nil
}

func asChoiceOf(cert *ResourceCertificate, pick func(*resource.ASIdentifiers) *resource.ASIdentifierChoice) (resource.ASIdentifierChoice, bool) {
	if cert == nil || cert.ASIdentifiers == nil {
		return resource.ASIdentifierChoice{}, false
	}
	c := pick(cert.ASIdentifiers)
	if c == nil {
		return resource.ASIdentifierChoice{}, true
	}
	return *c, true
}

// asContains is ipContains's arbitrary-precision counterpart.
func asContains(parent, child []resource.ASIdOrRange) bool {
	p := 0
	for _, c := range child {
		cMin, cMax := resource.ASBounds(c)
		for p < len(parent) {
			_, pMax := resource.ASBounds(parent[p])
			if pMax.Cmp(cMax) < 0 {
				p++
				continue
			}
			break
		}
		if p >= len(parent) {
			return false
		}
		pMin, _ := resource.ASBounds(parent[p])
		if pMin.Cmp(cMin) > 0 {
			return false
		}
	}
	return true
}
