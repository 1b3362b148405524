package rfc3779

import (
	"fmt"
	"math/big"
	"net/netip"
	"strconv"
	"strings"

	"github.com/rpki-toolkit/rfc3779/resource"
)

// ConfigLine is a single (name, value) configuration entry, the unit the
// text-form grammar of spec.md §4.6 operates on.
type ConfigLine struct {
	Name  string
	Value string
}

// ParseConfig parses configuration lines into a canonical IPAddrBlocks and
// ASIdentifiers. On any syntactic or semantic error the partial result is
// discarded and the operation fails (spec.md §4.6).
func ParseConfig(lines []ConfigLine) (*resource.IPAddrBlocks, *resource.ASIdentifiers, error) {
	blocks := &resource.IPAddrBlocks{}
	asids := &resource.ASIdentifiers{}

	for _, line := range lines {
		switch line.Name {
		case "IPv4":
			if err := parseIPLine(blocks, resource.AFIIPv4, nil, line.Value); err != nil {
				return nil, nil, err
			}
		case "IPv6":
			if err := parseIPLine(blocks, resource.AFIIPv6, nil, line.Value); err != nil {
				return nil, nil, err
			}
		case "IPv4-SAFI":
			safi, rest, err := splitSAFI(line.Value)
			if err != nil {
				return nil, nil, err
			}
			if err := parseIPLine(blocks, resource.AFIIPv4, &safi, rest); err != nil {
				return nil, nil, err
			}
		case "IPv6-SAFI":
			safi, rest, err := splitSAFI(line.Value)
			if err != nil {
				return nil, nil, err
			}
			if err := parseIPLine(blocks, resource.AFIIPv6, &safi, rest); err != nil {
				return nil, nil, err
			}
		case "AS":
			if err := parseASLine(asids.AsNumChoice(), line.Value); err != nil {
				return nil, nil, err
			}
		case "RDI":
			if err := parseASLine(asids.RDIChoice(), line.Value); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("%w: %q", ErrExtensionName, line.Name)
		}
	}

	// The config parser accepts and silently sorts an empty family list;
	// this preserves the source's behavior (spec.md §9).
	if err := blocks.Canonicalize(); err != nil {
		return nil, nil, err
	}
	if err := asids.Canonicalize(); err != nil {
		return nil, nil, err
	}
	return blocks, asids, nil
}

func splitSAFI(value string) (uint8, string, error) {
	value = strings.TrimSpace(value)
	idx := strings.IndexByte(value, ':')
	if idx < 0 {
		return 0, "", fmt.Errorf("%w: missing safi prefix in %q", ErrExtensionValue, value)
	}
	numPart := strings.TrimSpace(value[:idx])
	n, err := strconv.ParseUint(numPart, 0, 16)
	if err != nil || n > 0xFF {
		return 0, "", fmt.Errorf("%w: bad safi %q", ErrExtensionValue, numPart)
	}
	return uint8(n), strings.TrimSpace(value[idx+1:]), nil
}

func splitTopLevel(value string, sep byte) []string {
	parts := strings.Split(value, string(sep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIPLine(blocks *resource.IPAddrBlocks, afi uint16, safi *uint8, value string) error {
	tokens := splitTopLevel(value, ',')
	if len(tokens) == 0 {
		return nil
	}
	for _, tok := range tokens {
		if tok == "inherit" {
			if len(tokens) != 1 {
				return fmt.Errorf("%w: inherit cannot be combined with other values", ErrExtensionValue)
			}
			return blocks.AddInherit(afi, safi)
		}
	}
	length, known := resource.AddrLen(afi)
	if !known {
		return fmt.Errorf("%w: unsupported afi %d", ErrExtensionValue, afi)
	}
	for _, tok := range tokens {
		isPrefix, addr, plen, min, max, err := parseAddrExpr(tok, length)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtensionValue, err)
		}
		if isPrefix {
			if err := blocks.AddPrefix(afi, safi, addr, plen); err != nil {
				return err
			}
			continue
		}
		if err := blocks.AddRange(afi, safi, min, max); err != nil {
			return err
		}
	}
	return nil
}

// parseAddrExpr parses one `addr ("/" decimal | "-" addr | ε)` token.
func parseAddrExpr(tok string, addrLen int) (isPrefix bool, addr []byte, prefixLen int, min, max []byte, err error) {
	if idx := strings.IndexByte(tok, '/'); idx >= 0 {
		a, perr := parseAddr(strings.TrimSpace(tok[:idx]), addrLen)
		if perr != nil {
			return false, nil, 0, nil, nil, perr
		}
		lenPart := strings.TrimSpace(tok[idx+1:])
		n, perr := strconv.Atoi(lenPart)
		if perr != nil || n < 0 || n > addrLen*8 {
			return false, nil, 0, nil, nil, fmt.Errorf("invalid prefix length %q", lenPart)
		}
		return true, a, n, nil, nil, nil
	}
	if idx := strings.IndexByte(tok, '-'); idx >= 0 {
		minAddr, perr := parseAddr(strings.TrimSpace(tok[:idx]), addrLen)
		if perr != nil {
			return false, nil, 0, nil, nil, perr
		}
		maxAddr, perr := parseAddr(strings.TrimSpace(tok[idx+1:]), addrLen)
		if perr != nil {
			return false, nil, 0, nil, nil, perr
		}
		return false, nil, 0, minAddr, maxAddr, nil
	}
	a, perr := parseAddr(tok, addrLen)
	if perr != nil {
		return false, nil, 0, nil, nil, perr
	}
	// A trailing-only address is a singleton range [addr,addr] (spec.md §4.6).
	return false, nil, 0, a, a, nil
}

func parseAddr(s string, addrLen int) ([]byte, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", s, err)
	}
	raw := a.AsSlice()
	if len(raw) != addrLen {
		return nil, fmt.Errorf("address %q is not a valid %d-byte address for this family", s, addrLen)
	}
	return raw, nil
}

func parseASLine(choice *resource.ASIdentifierChoice, value string) error {
	tokens := splitTopLevel(value, ',')
	if len(tokens) == 0 {
		return nil
	}
	for _, tok := range tokens {
		if tok == "inherit" {
			if len(tokens) != 1 {
				return fmt.Errorf("%w: inherit cannot be combined with other values", ErrExtensionValue)
			}
			return choice.AddInherit()
		}
	}
	for _, tok := range tokens {
		// A range starts with a decimal followed (after optional blanks) by
		// '-'; any other token is read as a single AS number.
		lead := strings.TrimLeft(tok, "0123456789")
		if len(lead) < len(tok) && strings.HasPrefix(strings.TrimLeft(lead, " \t"), "-") {
			idx := strings.IndexByte(tok, '-')
			min, ok1 := new(big.Int).SetString(strings.TrimSpace(tok[:idx]), 10)
			max, ok2 := new(big.Int).SetString(strings.TrimSpace(tok[idx+1:]), 10)
			if !ok1 || !ok2 {
				return fmt.Errorf("%w: %q", resource.ErrInvalidAsRange, tok)
			}
			if err := choice.AddRange(min, max); err != nil {
				return err
			}
			continue
		}
		id, ok := new(big.Int).SetString(tok, 10)
		if !ok {
			return fmt.Errorf("%w: %q", resource.ErrInvalidAsNumber, tok)
		}
		if err := choice.AddID(id); err != nil {
			return err
		}
	}
	return nil
}
