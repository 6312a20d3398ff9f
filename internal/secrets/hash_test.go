package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse battery staple", h))
	assert.False(t, VerifyPassword("wrong password", h))
}

func TestHash_UniqueSalt(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("p@ssw0rd")
	require.NoError(t, err)
	h2, err := HashPassword("p@ssw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifyPassword("x", ""))
	assert.False(t, VerifyPassword("x", "$argon2id$garbage"))
	assert.False(t, VerifyPassword("x", "$bcrypt$v=19$m=65536,t=1,p=4$AAAA$BBBB"))
}
