package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, CheckPassword("secret123", hash))
	assert.Error(t, CheckPassword("wrong-password", hash))
}

func TestTruncatePasswordShortUnchanged(t *testing.T) {
	assert.Equal(t, []byte("abc"), TruncatePassword("abc"))

	exact := strings.Repeat("a", 72)
	assert.Equal(t, []byte(exact), TruncatePassword(exact))
}

func TestTruncatePasswordLimitsTo72Bytes(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := TruncatePassword(long)
	assert.Len(t, got, 72)
	assert.Equal(t, []byte(strings.Repeat("a", 72)), got)
}

func TestTruncatePasswordKeepsCharacterBoundary(t *testing.T) {
	// 70个ASCII字节后接一个3字节字符,截到72字节会切在字符中间
	password := strings.Repeat("a", 70) + "世"
	got := TruncatePassword(password)
	assert.Equal(t, []byte(strings.Repeat("a", 70)), got)
}

func TestPasswordsEqualBeyond72BytesMatch(t *testing.T) {
	base := strings.Repeat("x", 72)
	hash, err := HashPassword(base + "tail-one")
	require.NoError(t, err)

	// 前72字节相同的口令视为同一口令
	assert.NoError(t, CheckPassword(base+"tail-two", hash))
	assert.Error(t, CheckPassword(strings.Repeat("y", 72), hash))
}
