package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidIP(t *testing.T) {
	cases := map[string]bool{
		"255.255.255.255": true,
		"192.168.1.1":     true,
		"127.0.0.1":       true,
		"256.0.0.1":       false, // max 255 per octet
		"255.0.0":         false,
		"":                false,
		"xps.lab.local":   false,
		"::1":             false, // IPv6 not accepted
	}

	for addr, want := range cases {
		assert.Equal(t, want, IsValidIP(addr), "addr=%q", addr)
	}
}

func TestFormatFixed(t *testing.T) {
	assert.Equal(t, "095.50", FormatFixed(95.5, 6))
	assert.Equal(t, "007.00", FormatFixed(7, 6))
	assert.Equal(t, "123.45", FormatFixed(123.45, 6))
}
