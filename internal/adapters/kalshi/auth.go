package kalshi

// auth.go — firma de requests del API de Kalshi.
//
// Cada request autenticada lleva tres headers:
//   KALSHI-ACCESS-KEY        — el API key ID
//   KALSHI-ACCESS-TIMESTAMP  — epoch millis
//   KALSHI-ACCESS-SIGNATURE  — RSA-PSS SHA-256 sobre timestamp+método+path

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Signer firma requests con la clave privada RSA asociada al API key.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewSigner crea un Signer a partir de una clave ya parseada.
func NewSigner(keyID string, key *rsa.PrivateKey) *Signer {
	return &Signer{keyID: keyID, key: key, now: time.Now}
}

// LoadSigner lee la clave privada PEM desde disco y crea el Signer.
func LoadSigner(keyID, keyPath string) (*Signer, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("kalshi: read private key: %w", err)
	}
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("kalshi: parse private key %s: %w", keyPath, err)
	}
	return NewSigner(keyID, key), nil
}

// Sign añade los headers de autenticación a la request.
// path es el path completo sin query string (p.ej. /trade-api/v2/markets).
func (s *Signer) Sign(req *http.Request, method, path string) error {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)

	digest := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("sign pss: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", s.keyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(sig))
	return nil
}

// parsePrivateKey acepta claves PEM en formato PKCS#1 o PKCS#8.
func parsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key: %T", parsed)
	}
	return key, nil
}
