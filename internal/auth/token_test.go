package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCodec(clock *fakeClock) *Codec {
	return NewCodec(testSecret, time.Hour, WithTimeFunc(clock.Now))
}

func tamper(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	tok, err := codec.Issue("alice")
	require.NoError(t, err)
	assert.True(t, clock.t.Add(time.Hour).Equal(tok.ExpiresAt))

	clock.Advance(59 * time.Minute)
	sub, err := codec.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	tok, err := codec.Issue("alice")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = codec.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = codec.Verify(tamper(tok.Value))
	assert.ErrorIs(t, err, ErrExpiredToken, "expiry wins over a bad signature")
}

func TestVerifyTamperedSignature(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	tok, err := codec.Issue("alice")
	require.NoError(t, err)

	_, err = codec.Verify(tamper(tok.Value))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifyRejectsForeignKeyAndGarbage(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	other := NewCodec("ffffffffffffffffffffffffffffffff", time.Hour, WithTimeFunc(clock.Now))
	foreign, err := other.Issue("alice")
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"foreign key": foreign.Value,
		"garbage":     "not.a.token",
		"empty":       "",
	} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, name)
	}
}

func TestVerifyRejectsOtherAlgorithmsAndMissingClaims(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Verify(hs512)
	assert.ErrorIs(t, err, ErrMalformedToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Verify(noExp)
	assert.ErrorIs(t, err, ErrMalformedToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Verify(noSub)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
