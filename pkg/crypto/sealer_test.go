package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("NF-000123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "NF-000123")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "NF-000123", opened)
}

func TestSealer_EmptyAndLegacyValues(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := s.Open("plain legacy note")
	require.NoError(t, err)
	assert.Equal(t, "plain legacy note", opened)
}

func TestSealer_WrongKey(t *testing.T) {
	a, err := NewSealer(testKey)
	require.NoError(t, err)
	b, err := NewSealer("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealer_KeyLength(t *testing.T) {
	_, err := NewSealer("short")
	assert.Error(t, err)
}
