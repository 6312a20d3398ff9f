package simulations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	k1, salt, err := DeriveKey("correct horse", nil)
	require.NoError(t, err)
	require.Len(t, k1, 32)
	require.Len(t, salt, 16)

	k2, _, err := DeriveKey("correct horse", salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, _, err := DeriveKey("wrong horse", salt)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	key, err := RandomKey()
	require.NoError(t, err)

	token, err := Encrypt("классифицированные данные", key)
	require.NoError(t, err)
	assert.NotContains(t, token, "классифицированные")

	plain, err := Decrypt(token, key)
	require.NoError(t, err)
	assert.Equal(t, "классифицированные данные", plain)
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()

	key, err := RandomKey()
	require.NoError(t, err)
	token, err := Encrypt("payload", key)
	require.NoError(t, err)

	other, err := RandomKey()
	require.NoError(t, err)
	_, err = Decrypt(token, other)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt("not-base64!!!", key)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt("AAAA", key) // короче nonce
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestInTransit_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewService()
	res, err := svc.EncryptInTransit("top secret", "pa$$word")
	require.NoError(t, err)
	assert.Equal(t, "AES-256-GCM", res.Method)
	assert.NotEmpty(t, res.Salt)

	plain, err := svc.DecryptInTransit(res.EncryptedData, "pa$$word", res.Salt)
	require.NoError(t, err)
	assert.Equal(t, "top secret", plain)

	_, err = svc.DecryptInTransit(res.EncryptedData, "wrong", res.Salt)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestAtRest_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewService()
	res, err := svc.EncryptAtRest("db row")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Key)
	assert.Contains(t, res.Note, "KMS")

	plain, err := svc.DecryptAtRest(res.EncryptedData, res.Key)
	require.NoError(t, err)
	assert.Equal(t, "db row", plain)

	_, err = svc.DecryptAtRest(res.EncryptedData, "bm90LXRoZS1rZXk=")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	svc := NewService()
	res, err := svc.Lifecycle("sample data")
	require.NoError(t, err)

	assert.Equal(t, "sample data", res.Stages.AtRestDecryption.DecryptedData)
	assert.NotEmpty(t, res.Stages.AtRestEncryption.EncryptedData)
	assert.NotEmpty(t, res.Stages.TransitEncryption.Salt)
	assert.Contains(t, res.Explanation, "real_world")

	// этап in-transit расшифровывается фиксированным демо-паролем
	plain, err := svc.DecryptInTransit(
		res.Stages.TransitEncryption.EncryptedData,
		"secure_transport_password",
		res.Stages.TransitEncryption.Salt,
	)
	require.NoError(t, err)
	assert.Equal(t, "sample data", plain)
}
