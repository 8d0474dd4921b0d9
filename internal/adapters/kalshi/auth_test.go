package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestSigner_Sign(t *testing.T) {
	key := testKey(t)
	s := NewSigner("key-123", key)
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	req, err := http.NewRequest(http.MethodGet, "https://example.com/trade-api/v2/markets", nil)
	require.NoError(t, err)
	require.NoError(t, s.Sign(req, http.MethodGet, "/trade-api/v2/markets"))

	assert.Equal(t, "key-123", req.Header.Get("KALSHI-ACCESS-KEY"))
	assert.Equal(t, "1700000000000", req.Header.Get("KALSHI-ACCESS-TIMESTAMP"))

	sig, err := base64.StdEncoding.DecodeString(req.Header.Get("KALSHI-ACCESS-SIGNATURE"))
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("1700000000000" + "GET" + "/trade-api/v2/markets"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	assert.NoError(t, err, "signature must verify against the canonical string")
}

func TestLoadSigner_PKCS8(t *testing.T) {
	key := testKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type: "PRIVATE KEY", Bytes: der,
	}), 0o600))

	s, err := LoadSigner("key-123", path)
	require.NoError(t, err)
	assert.True(t, key.Equal(s.key))
}

func TestLoadSigner_PKCS1(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	_, err := LoadSigner("key-123", path)
	require.NoError(t, err)
}

func TestLoadSigner_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))

	_, err := LoadSigner("key-123", path)
	require.Error(t, err)
}
