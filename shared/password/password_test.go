package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelier/shared/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("s3cret-passphrase")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NotEqual(t, "s3cret-passphrase", hash, "hash must never equal the plaintext")
	assert.NoError(t, password.Verify("s3cret-passphrase", hash))
}

func TestHashIsSalted(t *testing.T) {
	first, err := password.Hash("s3cret-passphrase")
	require.NoError(t, err)

	second, err := password.Hash("s3cret-passphrase")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashEmptyPassword(t *testing.T) {
	_, err := password.Hash("")

	assert.Error(t, err)
}

func TestVerifyMismatch(t *testing.T) {
	hash, err := password.Hash("s3cret-passphrase")
	require.NoError(t, err)

	assert.ErrorIs(t, password.Verify("wrong-passphrase", hash), password.ErrInvalidPassword)
}

func TestVerifyEmptyInputs(t *testing.T) {
	hash, err := password.Hash("s3cret-passphrase")
	require.NoError(t, err)

	assert.ErrorIs(t, password.Verify("", hash), password.ErrInvalidPassword)
	assert.ErrorIs(t, password.Verify("s3cret-passphrase", ""), password.ErrInvalidPassword)
}

func TestVerifyGarbageHash(t *testing.T) {
	err := password.Verify("s3cret-passphrase", "not-a-bcrypt-hash")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, password.ErrInvalidPassword)
}
