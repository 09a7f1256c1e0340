// Package token turns a claim set into the opaque bearer token the
// questionnaire service redeems: an RS256-signed JWS wrapped in an
// RSA-OAEP + A256GCM JWE.
//
// The issuer performs no I/O. Key material is parsed once at construction;
// a malformed key fails construction rather than the first request.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/censusops/respondentgate/claims"
)

var (
	// ErrSigningFailed indicates the JWS stage failed.
	ErrSigningFailed = errors.New("claim signing failed")
	// ErrEncryptionFailed indicates the JWE stage failed.
	ErrEncryptionFailed = errors.New("token encryption failed")
)

// Issuer signs claim sets with the gateway's private key and encrypts the
// result for the questionnaire service's public key. Safe for concurrent
// use.
type Issuer struct {
	keyID      string
	signKey    *rsa.PrivateKey
	encryptKey *rsa.PublicKey
}

// NewIssuer parses both PEM keys and returns a ready issuer. The passphrase
// applies to the private key only and may be empty for unencrypted PEM.
func NewIssuer(keyID string, privateKeyPEM []byte, passphrase string, publicKeyPEM []byte) (*Issuer, error) {
	if keyID == "" {
		return nil, errors.New("key id required")
	}

	signKey, err := ParseRSAPrivateKey(privateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}

	encryptKey, err := ParseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return &Issuer{
		keyID:      keyID,
		signKey:    signKey,
		encryptKey: encryptKey,
	}, nil
}

// Issue produces the compact five-segment encrypted token for one claim
// set. Signature padding, content-encryption key, and IV are fresh per
// call, so identical claim sets never serialize to identical tokens.
func (i *Issuer) Issue(c claims.Claims) (string, error) {
	signed, err := i.sign(c)
	if err != nil {
		return "", err
	}
	return i.encrypt(signed)
}

func (i *Issuer) sign(c claims.Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(c.Map()))
	tok.Header["kid"] = i.keyID
	tok.Header["typ"] = "jwt"

	signed, err := tok.SignedString(i.signKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return signed, nil
}

func (i *Issuer) encrypt(signed string) (string, error) {
	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.RSA_OAEP, Key: i.encryptKey},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	obj, err := encrypter.Encrypt([]byte(signed))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	compact, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return compact, nil
}
