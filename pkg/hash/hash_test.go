package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h := NewBcrypt(4) // minimum cost keeps the test fast

	out, err := h.Hash("hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, out)

	assert.NotEqual(t, "hunter22", out)
	assert.True(t, strings.HasPrefix(out, "$2"))
	assert.True(t, h.Verify("hunter22", out))
	assert.False(t, h.Verify("hunter23", out))
}

func TestHashIsSalted(t *testing.T) {
	h := NewBcrypt(4)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestVerifyRejectsGarbageHash(t *testing.T) {
	h := NewBcrypt(0)
	assert.False(t, h.Verify("anything", "not-a-bcrypt-hash"))
}
