package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskgate/pkg/domain"
)

const testSecret = "unit-test-secret"

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "HS256", opts...)
	require.NoError(t, err)
	return codec
}

func TestNewCodecValidation(t *testing.T) {
	_, err := NewCodec("", "HS256")
	assert.Error(t, err)

	_, err = NewCodec(testSecret, "RS256")
	assert.Error(t, err)

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewCodec(testSecret, alg)
		assert.NoError(t, err, alg)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	userID := domain.NewUserID()

	raw, err := codec.Encode("alice@example.com", userID, time.Minute)
	require.NoError(t, err)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestDecodeExpiredToken(t *testing.T) {
	current := time.Now()
	codec := newTestCodec(t, WithClock(func() time.Time { return current }))

	raw, err := codec.Encode("alice@example.com", domain.NewUserID(), time.Minute)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	raw, err := codec.Encode("alice@example.com", domain.NewUserID(), time.Minute)
	require.NoError(t, err)

	tampered := []byte(raw)
	tampered[len(tampered)-1] ^= 0x01

	_, err = codec.Decode(string(tampered))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("some-other-secret", "HS256")
	require.NoError(t, err)

	raw, err := other.Encode("alice@example.com", domain.NewUserID(), time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeRejectsMissingIdentityClaims(t *testing.T) {
	codec := newTestCodec(t)

	// Correctly signed but carries no subject or user id.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeRejectsNoneAlgorithm(t *testing.T) {
	codec := newTestCodec(t)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: domain.NewUserID().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, ErrInvalid)
}
