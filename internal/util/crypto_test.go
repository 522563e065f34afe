package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("correct horse", "not-a-hash"))
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("admin", "admin"))
	assert.False(t, ConstantTimeEqual("admin", "admin2"))
	assert.False(t, ConstantTimeEqual("", "admin"))
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "****", MaskCode("abc"))
	assert.Equal(t, "ABCD-****", MaskCode("ABCDEFGH"))
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID("6ba7b8109dad11d180b400c04fd430c8"))
	assert.False(t, IsValidUUID("urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
}
