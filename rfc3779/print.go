package rfc3779

import (
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/rpki-toolkit/rfc3779/resource"
)

// PrintIPAddrBlocks renders a decoded IPAddrBlocks in the library's
// diagnostic text form (C7, spec.md §4.7).
func PrintIPAddrBlocks(w io.Writer, b *resource.IPAddrBlocks) error {
	for _, f := range b.Families {
		label := FamilyLabel(f.Key)
		if f.Choice.Inherit {
			if _, err := fmt.Fprintf(w, "%s: inherit\n", label); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n", label); err != nil {
			return err
		}
		length, known := resource.AddrLen(f.Key.AFI)
		for _, e := range f.Choice.Elements {
			line, err := formatIPElement(e, length, known)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

func afiLabel(afi uint16) string {
	if name, ok := resource.AFIName(afi); ok {
		return name
	}
	return fmt.Sprintf("Unknown AFI %d", afi)
}

// FamilyLabel renders a family key the same way PrintIPAddrBlocks does,
// for callers (the diagnostic CLI's dump --ranges flag) that need the
// label outside the full text-form dump.
func FamilyLabel(key resource.FamilyKey) string {
	label := afiLabel(key.AFI)
	if key.SAFI == nil {
		return label
	}
	if name, ok := resource.SAFIName(*key.SAFI); ok {
		return label + fmt.Sprintf(" (%s)", name)
	}
	return label + fmt.Sprintf(" (Unknown SAFI %d)", *key.SAFI)
}

// FormatAddr renders a raw address's presentation form, falling back to
// colon-separated hex for widths net/netip does not recognize.
func FormatAddr(b []byte) string { return formatAddr(b) }

func formatIPElement(e resource.IPAddressOrRange, length int, known bool) (string, error) {
	if !known {
		if e.IsPrefix() {
			return fmt.Sprintf("%s[%d]", hexColon(e.Prefix.Bytes), e.Prefix.Unused), nil
		}
		return fmt.Sprintf("%s[%d]-%s[%d]",
			hexColon(e.Range.Min.Bytes), e.Range.Min.Unused,
			hexColon(e.Range.Max.Bytes), e.Range.Max.Unused), nil
	}
	if e.IsPrefix() {
		addr := formatAddr(resource.Expand(*e.Prefix, length, 0x00))
		return fmt.Sprintf("%s/%d", addr, e.Prefix.PrefixLen()), nil
	}
	min := formatAddr(resource.Expand(e.Range.Min, length, 0x00))
	max := formatAddr(resource.Expand(e.Range.Max, length, 0xFF))
	return fmt.Sprintf("%s-%s", min, max), nil
}

func formatAddr(b []byte) string {
	addr, ok := netip.AddrFromSlice(b)
	if !ok {
		return hexColon(b)
	}
	return addr.String()
}

func hexColon(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02x", x)
	}
	return strings.Join(parts, ":")
}

// PrintASIdentifiers renders a decoded ASIdentifiers in the library's
// diagnostic text form (C7, spec.md §4.7).
func PrintASIdentifiers(w io.Writer, a *resource.ASIdentifiers) error {
	if a.AsNum != nil {
		if _, err := fmt.Fprintln(w, "Autonomous System Numbers:"); err != nil {
			return err
		}
		if err := printASChoice(w, a.AsNum); err != nil {
			return err
		}
	}
	if a.RDI != nil {
		if _, err := fmt.Fprintln(w, "Routing Domain Identifiers:"); err != nil {
			return err
		}
		if err := printASChoice(w, a.RDI); err != nil {
			return err
		}
	}
	return nil
}

func printASChoice(w io.Writer, c *resource.ASIdentifierChoice) error {
	if c.Inherit {
		_, err := fmt.Fprintln(w, "  inherit")
		return err
	}
	for _, e := range c.Elements {
		if e.ID != nil {
			if _, err := fmt.Fprintf(w, "  %s\n", e.ID.String()); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s-%s\n", e.Range.Min.String(), e.Range.Max.String()); err != nil {
			return err
		}
	}
	return nil
}
