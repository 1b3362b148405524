package resource

import (
	"math/big"
	"sort"
)

var bigOne = big.NewInt(1)

// ASRange is a closed interval of AS numbers.
type ASRange struct {
	Min *big.Int
	Max *big.Int
}

// ASIdOrRange is the ASIdOrRange CHOICE: exactly one of ID or Range is set.
type ASIdOrRange struct {
	ID    *big.Int
	Range *ASRange
}

// extractMinMax returns the inclusive bounds of an ASIdOrRange (grounded on
// extract_min_max in the original implementation).
func extractMinMax(e ASIdOrRange) (min, max *big.Int) {
	if e.ID != nil {
		return e.ID, e.ID
	}
	return e.Range.Min, e.Range.Max
}

// ASBounds is the exported form of extractMinMax, used by the path
// validator's containment check (C8).
func ASBounds(e ASIdOrRange) (min, max *big.Int) { return extractMinMax(e) }

func makeASElement(min, max *big.Int) ASIdOrRange {
	if min.Cmp(max) == 0 {
		return ASIdOrRange{ID: min}
	}
	return ASIdOrRange{Range: &ASRange{Min: min, Max: max}}
}

// ASIdentifierChoice is the ASIdentifierChoice CHOICE: either Inherit is
// set, or Elements holds an ordered sequence, never both.
type ASIdentifierChoice struct {
	Inherit  bool
	Elements []ASIdOrRange
}

// AddInherit installs the inherit sentinel. Idempotent if already inherit;
// fails with ErrInvalidInheritance if explicit resources are present.
func (c *ASIdentifierChoice) AddInherit() error {
	if c.Inherit {
		return nil
	}
	if len(c.Elements) > 0 {
		return ErrInvalidInheritance
	}
	c.Inherit = true
	return nil
}

// AddID appends a single AS number.
func (c *ASIdentifierChoice) AddID(id *big.Int) error {
	if c.Inherit {
		return ErrInvalidInheritance
	}
	if id.Sign() < 0 {
		return ErrInvalidAsNumber
	}
	c.Elements = append(c.Elements, ASIdOrRange{ID: id})
	return nil
}

// AddRange appends an AS range [min,max], collapsing it to a single id if
// min==max (mirroring IPAddrBlocks.AddRange's prefix collapse in
// resource/family.go). Callers must ensure min <= max; AddRange does not
// reorder elements — that happens during Canonicalize.
func (c *ASIdentifierChoice) AddRange(min, max *big.Int) error {
	if c.Inherit {
		return ErrInvalidInheritance
	}
	if min.Sign() < 0 || max.Sign() < 0 || min.Cmp(max) > 0 {
		return ErrInvalidAsRange
	}
	c.Elements = append(c.Elements, makeASElement(min, max))
	return nil
}

// Canonicalize sorts and merges the sequence (C5, spec.md §4.5).
func (c *ASIdentifierChoice) Canonicalize() error {
	if c.Inherit {
		return nil
	}
	sort.Slice(c.Elements, func(i, j int) bool {
		aMin, aMax := extractMinMax(c.Elements[i])
		bMin, bMax := extractMinMax(c.Elements[j])
		if cmp := aMin.Cmp(bMin); cmp != 0 {
			return cmp < 0
		}
		return aMax.Cmp(bMax) < 0
	})

	elems := c.Elements
	i := 0
	for i < len(elems)-1 {
		aMin, aMax := extractMinMax(elems[i])
		bMin, bMax := extractMinMax(elems[i+1])

		if aMax.Cmp(bMax) >= 0 {
			// b ⊆ a: drop b, re-examine i.
			elems = append(elems[:i+1], elems[i+2:]...)
			continue
		}

		aMaxPlusOne := new(big.Int).Add(aMax, bigOne)
		if aMaxPlusOne.Cmp(bMin) >= 0 {
			elems[i] = makeASElement(aMin, bMax)
			elems = append(elems[:i+1], elems[i+2:]...)
			continue
		}
		i++
	}
	// Normalize every surviving element, not just merge results: an
	// element can reach here as an equal-bound Range without ever merging
	// with a neighbor (e.g. a singleton range decoded off the wire, or a
	// duplicate singleton dropped as contained during the sweep above).
	for idx, e := range elems {
		min, max := extractMinMax(e)
		elems[idx] = makeASElement(min, max)
	}
	c.Elements = elems
	return nil
}

// IsCanonical reports whether the sequence already satisfies the ordering,
// non-adjacency, and minimal-representation invariants, without mutating it.
func (c *ASIdentifierChoice) IsCanonical() bool {
	if c.Inherit {
		return len(c.Elements) == 0
	}
	for i, e := range c.Elements {
		if e.Range != nil && e.Range.Min.Cmp(e.Range.Max) == 0 {
			return false // equal-bound range must be represented as an id
		}
		if i == 0 {
			continue
		}
		prevMin, prevMax := extractMinMax(c.Elements[i-1])
		min, _ := extractMinMax(e)
		if prevMin.Cmp(min) >= 0 {
			return false
		}
		adjacentOrOverlap := new(big.Int).Add(prevMax, bigOne)
		if adjacentOrOverlap.Cmp(min) >= 0 {
			return false
		}
	}
	return true
}

// Inherits reports whether this choice is the inherit sentinel.
func (c *ASIdentifierChoice) Inherits() bool { return c != nil && c.Inherit }

// ASIdentifiers carries the two independent AS resource choices: AS numbers
// proper, and Routing Domain Identifiers.
type ASIdentifiers struct {
	AsNum *ASIdentifierChoice
	RDI   *ASIdentifierChoice
}

// AsNumChoice returns (creating if absent) the asnum choice.
func (a *ASIdentifiers) AsNumChoice() *ASIdentifierChoice {
	if a.AsNum == nil {
		a.AsNum = &ASIdentifierChoice{}
	}
	return a.AsNum
}

// RDIChoice returns (creating if absent) the rdi choice.
func (a *ASIdentifiers) RDIChoice() *ASIdentifierChoice {
	if a.RDI == nil {
		a.RDI = &ASIdentifierChoice{}
	}
	return a.RDI
}

// Canonicalize canonicalizes whichever of AsNum/RDI are present.
func (a *ASIdentifiers) Canonicalize() error {
	if a.AsNum != nil {
		if err := a.AsNum.Canonicalize(); err != nil {
			return err
		}
	}
	if a.RDI != nil {
		if err := a.RDI.Canonicalize(); err != nil {
			return err
		}
	}
	return nil
}

// IsCanonical reports whether both present choices are canonical.
func (a *ASIdentifiers) IsCanonical() bool {
	if a.AsNum != nil && !a.AsNum.IsCanonical() {
		return false
	}
	if a.RDI != nil && !a.RDI.IsCanonical() {
		return false
	}
	return true
}
