package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate("alice")
	require.NoError(t, err)
	require.Contains(t, token, ".")

	userID, ok := codec.Decode(token)
	assert.True(t, ok)
	assert.Equal(t, "alice", userID)
}

func TestTokenSignatureTamper(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate("alice")
	require.NoError(t, err)

	// Flip the last signature character.
	last := token[len(token)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := token[:len(token)-1] + string(flipped)

	_, ok := codec.Decode(tampered)
	assert.False(t, ok)
}

func TestTokenPayloadTamper(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate("alice")
	require.NoError(t, err)

	// Swap the payload for a different user but keep the old signature.
	other, err := codec.Generate("mallory")
	require.NoError(t, err)

	otherPayload, _, ok := strings.Cut(other, ".")
	require.True(t, ok)
	_, oldSig, ok := strings.Cut(token, ".")
	require.True(t, ok)

	_, valid := codec.Decode(otherPayload + "." + oldSig)
	assert.False(t, valid)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewCodec("secret-a").Generate("alice")
	require.NoError(t, err)

	_, ok := NewCodec("secret-b").Decode(token)
	assert.False(t, ok)
}

func TestTokenMalformed(t *testing.T) {
	codec := NewCodec("test-secret")

	for _, token := range []string{"", "no-dot", "a.b.c.d", ".", "!!!.0000000000000000"} {
		_, ok := codec.Decode(token)
		assert.False(t, ok, "token %q should be rejected", token)
	}
}

func TestTokenEmptyUserID(t *testing.T) {
	codec := NewCodec("test-secret")

	// A syntactically valid token for an empty user still fails decoding.
	token, err := codec.Generate("")
	require.NoError(t, err)

	_, ok := codec.Decode(token)
	assert.False(t, ok)
}
