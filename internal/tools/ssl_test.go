package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, EnsureCertificate(certPath, keyPath))
	assert.True(t, certificateValid(certPath, keyPath, time.Now()))
	assert.False(t, certificateValid(certPath, keyPath, time.Now().Add(2*365*24*time.Hour)))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A valid pair is left alone.
	before, err := os.ReadFile(certPath)
	require.NoError(t, err)
	require.NoError(t, EnsureCertificate(certPath, keyPath))
	after, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEnsureCertificateReplacesGarbage(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("not a cert"), 0644))
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0600))

	require.NoError(t, EnsureCertificate(certPath, keyPath))
	assert.True(t, certificateValid(certPath, keyPath, time.Now()))
}
