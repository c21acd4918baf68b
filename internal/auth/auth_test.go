package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

// --- passwords ---

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.NoError(t, CheckPassword(hash, "correct horse battery"))

	err = CheckPassword(hash, "wrong password")
	assert.True(t, errs.IsUnauthenticated(err))
}

func TestHashPassword_Rejects(t *testing.T) {
	_, err := HashPassword("short")
	assert.True(t, errs.IsInvalidInput(err))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	err := CheckPassword("not-a-hash", "whatever")
	assert.True(t, errs.IsUnauthenticated(err))
}

// --- tokens ---

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", "deckbuilder", 0)
	assert.True(t, errs.IsConfig(err))
}

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer(testSecret, "deckbuilder", 0)
	require.NoError(t, err)

	before := time.Now()
	tok, err := iss.Issue("user-123", "ana")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Value)
	assert.WithinDuration(t, before.Add(24*time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := iss.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "deckbuilder", claims.Issuer)
}

func TestParse_Expired(t *testing.T) {
	iss, err := NewIssuer(testSecret, "deckbuilder", time.Hour)
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := iss.Issue("user-1", "")
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(tok.Value)
	require.Error(t, err)
	assert.True(t, errs.IsUnauthenticated(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestParse_WrongSecretOrIssuer(t *testing.T) {
	a, _ := NewIssuer(testSecret, "deckbuilder", 0)
	b, _ := NewIssuer("another-secret", "deckbuilder", 0)
	c, _ := NewIssuer(testSecret, "someone-else", 0)

	tok, err := a.Issue("user-1", "")
	require.NoError(t, err)

	_, err = b.Parse(tok.Value)
	assert.True(t, errs.IsUnauthenticated(err))

	_, err = c.Parse(tok.Value)
	assert.True(t, errs.IsUnauthenticated(err))
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	iss, _ := NewIssuer(testSecret, "deckbuilder", 0)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "deckbuilder",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Parse(unsigned)
	assert.True(t, errs.IsUnauthenticated(err))
}

func TestRandomSecret(t *testing.T) {
	a, err := RandomSecret()
	require.NoError(t, err)
	b, err := RandomSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	for _, h := range []string{"", "Basic xyz", "Bearer ", "bearer abc"} {
		_, err := BearerToken(h)
		assert.True(t, errs.IsUnauthenticated(err), "header %q", h)
	}
}
