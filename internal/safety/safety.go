// Package safety implements the SSRF validator: given a URL, decide
// whether it is safe to contact once its host has been resolved to
// concrete IPs. Ported from the blocked-range tables of the original
// Rust ssrf_validator.
package safety

import (
	"context"
	"fmt"
	"net"
	"net/url"

	whatwgurl "github.com/nlnwa/whatwg-url/url"

	coreerrors "skhoot/internal/core/errors"
)

var parser = whatwgurl.NewParser()

// Resolver abstracts DNS lookup so tests can inject fixed resolutions.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator checks whether URLs are safe to contact.
type Validator struct {
	resolver Resolver
	isPublic func(net.IP) bool
}

// New builds a Validator using the system resolver.
func New() *Validator {
	return &Validator{resolver: net.DefaultResolver, isPublic: IsPublic}
}

// NewWithResolver builds a Validator using a custom resolver, for tests.
func NewWithResolver(r Resolver) *Validator {
	return &Validator{resolver: r, isPublic: IsPublic}
}

// NewWithChecker builds a Validator with a custom resolver and a custom
// public-range predicate, letting tests exercise fetchers against
// httptest's loopback servers without relaxing the production ranges in
// IsPublic itself.
func NewWithChecker(r Resolver, isPublic func(net.IP) bool) *Validator {
	return &Validator{resolver: r, isPublic: isPublic}
}

// Canonicalize parses and normalizes a URL per the WHATWG URL standard,
// rejecting anything that isn't http(s).
func Canonicalize(raw string) (string, error) {
	u, err := parser.Parse(raw)
	if err != nil {
		return "", coreerrors.InvalidUrl(raw, err)
	}
	scheme := u.Protocol()
	if scheme != "http:" && scheme != "https:" {
		return "", coreerrors.InvalidUrl(raw, fmt.Errorf("unsupported scheme %q", scheme))
	}
	return u.Href(false), nil
}

// Validate resolves host's IPs and rejects the URL if any resolved IP
// falls into a blocked range, or if the scheme is not http(s).
func (v *Validator) Validate(ctx context.Context, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return coreerrors.InvalidUrl(raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return coreerrors.InvalidUrl(raw, fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}
	host := parsed.Hostname()
	if host == "" {
		return coreerrors.InvalidUrl(raw, fmt.Errorf("missing host"))
	}

	if ip := net.ParseIP(host); ip != nil {
		if !v.isPublic(ip) {
			return coreerrors.SsrfViolation(raw, blockedReason(ip))
		}
		return nil
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return coreerrors.InvalidUrl(raw, err)
	}
	if len(addrs) == 0 {
		return coreerrors.InvalidUrl(raw, fmt.Errorf("host %q did not resolve", host))
	}
	for _, a := range addrs {
		if !v.isPublic(a.IP) {
			return coreerrors.SsrfViolation(raw, blockedReason(a.IP))
		}
	}
	return nil
}

func blockedReason(ip net.IP) string {
	return fmt.Sprintf("%s is not a publicly routable address", ip.String())
}

// IsPublic reports whether ip is outside every blocked range enumerated
// by the validator. Deterministic and side-effect free.
func IsPublic(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return isPublicV4(ip4)
	}
	return isPublicV6(ip)
}

func isPublicV4(ip net.IP) bool {
	for _, blocked := range blockedV4 {
		if blocked.Contains(ip) {
			return false
		}
	}
	return true
}

func isPublicV6(ip net.IP) bool {
	// IPv4-mapped IPv6 delegates to the IPv4 rule.
	if v4 := ip.To4(); v4 != nil {
		return isPublicV4(v4)
	}
	for _, blocked := range blockedV6 {
		if blocked.Contains(ip) {
			return false
		}
	}
	return true
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

var blockedV4 = []*net.IPNet{
	mustParseCIDR("127.0.0.0/8"),    // loopback
	mustParseCIDR("10.0.0.0/8"),     // private
	mustParseCIDR("172.16.0.0/12"),  // private
	mustParseCIDR("192.168.0.0/16"), // private
	mustParseCIDR("169.254.0.0/16"), // link-local
	mustParseCIDR("224.0.0.0/4"),    // multicast
	mustParseCIDR("255.255.255.255/32"), // broadcast
	mustParseCIDR("0.0.0.0/8"),      // "this network"
	mustParseCIDR("192.0.0.0/24"),   // documentation/test-net
	mustParseCIDR("192.0.2.0/24"),   // documentation/test-net
	mustParseCIDR("198.51.100.0/24"),// documentation/test-net
	mustParseCIDR("203.0.113.0/24"), // documentation/test-net
	mustParseCIDR("198.18.0.0/15"),  // benchmarking
	mustParseCIDR("240.0.0.0/4"),    // reserved
}

var blockedV6 = []*net.IPNet{
	mustParseCIDR("::1/128"),    // loopback
	mustParseCIDR("::/128"),     // unspecified
	mustParseCIDR("fe80::/10"),  // link-local
	mustParseCIDR("fc00::/7"),   // unique-local
	mustParseCIDR("ff00::/8"),   // multicast
	mustParseCIDR("2001:db8::/32"), // documentation
}
