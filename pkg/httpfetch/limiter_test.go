package httpfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainLimiter_AllowsWithinBurst(t *testing.T) {
	l := NewDomainLimiter(1, 2)
	assert.True(t, l.Allow("https://example.com/a"))
	assert.True(t, l.Allow("https://example.com/b"))
	assert.False(t, l.Allow("https://example.com/c"))
}

func TestDomainLimiter_PerDomain(t *testing.T) {
	l := NewDomainLimiter(1, 1)
	assert.True(t, l.Allow("https://a.example.com/x"))
	assert.True(t, l.Allow("https://b.example.com/x"))
}
