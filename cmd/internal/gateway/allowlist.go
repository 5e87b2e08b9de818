package gateway

import (
	"net/netip"
	"strings"
)

// allowList holds the parsed caller-address allow-list for the restricted
// path prefix. Entries may be exact addresses or CIDR prefixes.
type allowList struct {
	prefixes []netip.Prefix
}

func parseAllowList(entries []string) (allowList, error) {
	var al allowList

	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return allowList{}, ErrConfig
			}
			al.prefixes = append(al.prefixes, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return allowList{}, ErrConfig
		}
		al.prefixes = append(al.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return al, nil
}

// contains reports whether addr is covered by the allow-list. An unparsable
// caller address is never allowed.
func (al allowList) contains(addr string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	a = a.Unmap()

	for _, p := range al.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
