package safety

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPublicBlocksKnownRanges(t *testing.T) {
	blocked := []string{
		"127.0.0.1", "10.1.2.3", "172.16.0.5", "192.168.1.1",
		"169.254.1.1", "224.0.0.1", "255.255.255.255", "0.1.2.3",
		"192.0.0.1", "192.0.2.1", "198.51.100.1", "203.0.113.1",
		"198.18.0.1", "240.0.0.1",
		"::1", "::", "fe80::1", "fc00::1", "ff00::1", "2001:db8::1",
	}
	for _, s := range blocked {
		ip := net.ParseIP(s)
		assert.False(t, IsPublic(ip), "expected %s to be blocked", s)
	}
}

func TestIsPublicAllowsRoutableAddresses(t *testing.T) {
	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34", "2606:4700:4700::1111"}
	for _, s := range public {
		ip := net.ParseIP(s)
		assert.True(t, IsPublic(ip), "expected %s to be public", s)
	}
}

func TestIsPublicIPv4MappedDelegatesToV4Rule(t *testing.T) {
	mapped := net.ParseIP("::ffff:127.0.0.1")
	assert.False(t, IsPublic(mapped))
}

type fakeResolver struct {
	addrs []net.IPAddr
	err   error
}

func (f fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return f.addrs, f.err
}

func TestValidateRejectsResolvedPrivateIP(t *testing.T) {
	v := NewWithResolver(fakeResolver{addrs: []net.IPAddr{{IP: net.ParseIP("127.0.0.1")}}})
	err := v.Validate(context.Background(), "http://internal.example/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SsrfViolation")
}

func TestValidateAcceptsResolvedPublicIP(t *testing.T) {
	v := NewWithResolver(fakeResolver{addrs: []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}})
	err := v.Validate(context.Background(), "https://example.test/")
	assert.NoError(t, err)
}

func TestValidateRejectsNonHTTPScheme(t *testing.T) {
	v := New()
	err := v.Validate(context.Background(), "ftp://example.test/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidUrl")
}
