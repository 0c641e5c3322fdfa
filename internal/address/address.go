// Package address implements the host patterns a monitor watches: a single
// address (or hostname, resolved once) and an inclusive address range.
package address

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/radarmon/radar/internal/errors"
)

// Pattern matches peer addresses.
type Pattern interface {
	Contains(addr netip.Addr) bool
	String() string
}

// Single matches exactly one address.
type Single struct {
	Addr netip.Addr
}

// Contains reports whether addr equals the pattern's address.
func (s Single) Contains(addr netip.Addr) bool {
	return s.Addr == addr.Unmap()
}

func (s Single) String() string {
	return s.Addr.String()
}

// Range matches every address between Start and End, both inclusive.
type Range struct {
	Start netip.Addr
	End   netip.Addr
}

// Contains reports whether addr lies inside the range.
func (r Range) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.BitLen() != r.Start.BitLen() {
		return false
	}
	return r.Start.Compare(addr) <= 0 && addr.Compare(r.End) <= 0
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// resolveTimeout bounds hostname lookups at parse time.
const resolveTimeout = 5 * time.Second

// lookup is swapped out by tests.
var lookup = func(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// Parse turns a configured host string into a Pattern. A literal address or
// hostname yields a Single; "a-b" yields a Range.
func Parse(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrConfig, "Empty host address", "Set a hostname, an address or a range like 10.0.0.1-10.0.0.10")
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return Single{Addr: addr.Unmap()}, nil
	}

	if start, end, ok := strings.Cut(s, "-"); ok {
		r, err := parseRange(strings.TrimSpace(start), strings.TrimSpace(end))
		if err == nil {
			return r, nil
		}
		// Hostnames may contain dashes, only report range errors when both
		// ends are addresses.
		if errors.IsCode(err, errors.ErrConfig) && isLiteral(start) && isLiteral(end) {
			return nil, err
		}
	}

	addr, err := resolve(s)
	if err != nil {
		return nil, err
	}
	return Single{Addr: addr}, nil
}

// MustParse is like Parse but panics on error. Intended for tests.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isLiteral(s string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil
}

func parseRange(start, end string) (Range, error) {
	a, err := parseOrResolve(start)
	if err != nil {
		return Range{}, err
	}
	b, err := parseOrResolve(end)
	if err != nil {
		return Range{}, err
	}

	if a.BitLen() != b.BitLen() {
		return Range{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Address range mixes IPv4 and IPv6: '%s - %s'", a, b),
			"Use the same address family on both ends of the range")
	}
	if a.Compare(b) >= 0 {
		return Range{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Start address is greater than or equal to end address: '%s - %s'", a, b),
			"List the lower address first")
	}
	return Range{Start: a, End: b}, nil
}

func parseOrResolve(s string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), nil
	}
	return resolve(s)
}

func resolve(host string) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	addrs, err := lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		return netip.Addr{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid hostname or address: '%s'", host),
			"Check the spelling or use a literal address")
	}

	// Prefer IPv4 the way gethostbyname does.
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap(), nil
		}
	}
	return addrs[0], nil
}
