package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer("test-secret", 30*time.Minute)
	tok, err := ti.Issue("user@example.com")
	require.NoError(t, err)

	sub, err := ti.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", sub)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer("right-secret", time.Hour).Issue("u@e.c")
	require.NoError(t, err)

	_, err = NewTokenIssuer("wrong-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer("secret", 30*time.Minute)
	issued := time.Now()
	ti.Now = func() time.Time { return issued }

	tok, err := ti.Issue("u@e.c")
	require.NoError(t, err)

	// за минуту до истечения — валиден
	ti.Now = func() time.Time { return issued.Add(29 * time.Minute) }
	_, err = ti.Verify(tok)
	assert.NoError(t, err)

	// после истечения — отказ
	ti.Now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = ti.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	t.Parallel()

	ti := NewTokenIssuer("secret", time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ti.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
