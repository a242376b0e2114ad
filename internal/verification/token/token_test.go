package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-verify/internal/common/errors"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", 24*time.Hour)

	signed, err := codec.Issue("cust-123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	verified, err := codec.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "cust-123", verified.CustomerID)
	assert.NotEmpty(t, verified.TokenID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), verified.ExpiresAt, time.Minute)
}

func TestTokenIDsAreUnique(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	a, err := codec.Issue("cust-1")
	require.NoError(t, err)
	b, err := codec.Issue("cust-1")
	require.NoError(t, err)

	va, err := codec.Verify(a)
	require.NoError(t, err)
	vb, err := codec.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, va.TokenID, vb.TokenID)
}

func TestVerifyExpired(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	issued := time.Now()
	codec.now = func() time.Time { return issued }

	signed, err := codec.Issue("cust-123")
	require.NoError(t, err)

	// One second inside the window still verifies.
	codec.now = func() time.Time { return issued.Add(time.Hour - time.Second) }
	_, err = codec.Verify(signed)
	assert.NoError(t, err)

	// Past the window it is expired, not malformed.
	codec.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	_, err = codec.Verify(signed)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTokenExpired, errors.CodeOf(err))
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, err := NewCodec("secret-a", time.Hour).Issue("cust-123")
	require.NoError(t, err)

	_, err = NewCodec("secret-b", time.Hour).Verify(signed)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTokenSignatureInvalid, errors.CodeOf(err))
}

func TestVerifyMalformed(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(input)
		require.Error(t, err, "input %q", input)
		assert.Equal(t, errors.ErrCodeTokenMalformed, errors.CodeOf(err), "input %q", input)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	signed, err := codec.Issue("cust-123")
	require.NoError(t, err)

	// Flip a character inside the payload segment.
	tampered := []byte(signed)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = codec.Verify(string(tampered))
	assert.Error(t, err)
}
