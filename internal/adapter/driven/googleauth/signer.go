// Package googleauth implements the TokenSource port for Google service
// accounts: an RS256-signed JWT-bearer assertion exchanged at the OAuth
// token endpoint for a short-lived bearer token.
package googleauth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrKeyFormat indicates the configured private key is not parseable
	// PEM (missing markers, garbled base64, wrong block type).
	ErrKeyFormat = errors.New("private key is not valid PEM")

	// ErrSigning indicates the cryptographic signing operation itself failed.
	ErrSigning = errors.New("signing failed")
)

// NormalizePEM converts literal backslash-n sequences into real newlines and
// trims surrounding whitespace. Key material routed through env vars or JSON
// commonly arrives with escaped newlines, which the PEM parser rejects.
func NormalizePEM(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, `\n`, "\n"))
}

// Signer produces RSA-SHA256 (PKCS#1 v1.5) signatures over assertion
// payloads. The key is parsed once at construction; signing is a pure
// function over the payload.
type Signer struct {
	key    *rsa.PrivateKey
	method jwt.SigningMethod
}

// NewSigner parses the PEM-encoded RSA private key, normalizing escaped
// newlines first. Returns ErrKeyFormat when the material cannot be parsed.
func NewSigner(pemKey string) (*Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(NormalizePEM(pemKey)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}

	return &Signer{
		key:    key,
		method: jwt.SigningMethodRS256,
	}, nil
}

// Sign computes the RS256 signature over signingString and returns the raw
// signature bytes. The caller is responsible for base64url encoding.
func (s *Signer) Sign(signingString string) ([]byte, error) {
	sig, err := s.method.Sign(signingString, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return sig, nil
}

// PublicKey exposes the public half of the signing key for verification in
// tests and diagnostics.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}
