package httpfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainFilter_AllowList(t *testing.T) {
	f := NewDomainFilter(FilterConfig{AllowedDomains: []string{"*.example.com"}})

	assert.NoError(t, f.Validate("https://docs.example.com/page"))
	assert.Error(t, f.Validate("https://other.org/page"))
}

func TestDomainFilter_BlockList(t *testing.T) {
	f := NewDomainFilter(FilterConfig{BlockedDomains: []string{"evil.com"}})

	assert.Error(t, f.Validate("https://evil.com/page"))
	assert.NoError(t, f.Validate("https://fine.org/page"))
}

func TestDomainFilter_BlocksSSRFTargets(t *testing.T) {
	f := NewDomainFilter(FilterConfig{})

	assert.Error(t, f.Validate("http://127.0.0.1/admin"))
	assert.Error(t, f.Validate("http://169.254.169.254/latest/meta-data"))
	assert.Error(t, f.Validate("http://10.0.0.5/internal"))
}

func TestDomainFilter_BlocksLoopbackHostnameByDefault(t *testing.T) {
	f := NewDomainFilter(FilterConfig{})

	assert.Error(t, f.Validate("http://localhost/x"))
	assert.Error(t, f.Validate("http://service.internal/x"))
	assert.Error(t, f.Validate("http://box.local/x"))
}

func TestDomainFilter_RejectsBadScheme(t *testing.T) {
	f := NewDomainFilter(FilterConfig{})
	assert.Error(t, f.Validate("file:///etc/passwd"))
}

func TestDomainMatches_Wildcard(t *testing.T) {
	set := map[string]bool{"*.example.com": true}
	assert.True(t, domainMatches("docs.example.com", set))
	assert.False(t, domainMatches("example.org", set))
}
