package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("exp-1", "audit/2026-03-10.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	exportID, relPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", exportID)
	assert.Equal(t, "audit/2026-03-10.csv", relPath)
}

func TestTokenFilenameExportID(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)

	// IDs carry a file extension, so they contain the token separator.
	token, _, err := signer.Generate("audit-20260310-120000.csv", "audit/audit-20260310-120000.csv")
	require.NoError(t, err)

	exportID, relPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "audit-20260310-120000.csv", exportID)
	assert.Equal(t, "audit/audit-20260310-120000.csv", relPath)
}

func TestTokenTampered(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)

	token, _, err := signer.Generate("exp-1", "audit/2026-03-10.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	assert.Error(t, err)

	other := NewTokenSigner("different", time.Hour)
	_, _, _, err = other.Parse(token, false)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	signer := NewTokenSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("exp-1", "audit/2026-03-10.csv")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "audit/2026-03-10.csv", relPath)
}
