package token

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidPrivateKey indicates the signing key PEM could not be parsed
	// or decrypted.
	ErrInvalidPrivateKey = errors.New("invalid rsa private key")
	// ErrInvalidPublicKey indicates the encryption key PEM could not be
	// parsed.
	ErrInvalidPublicKey = errors.New("invalid rsa public key")
)

// ParseRSAPrivateKey parses a PEM-encoded RSA private key. Legacy encrypted
// PEM blocks (DEK-Info headers) are decrypted with the supplied passphrase;
// unencrypted keys ignore it.
func ParseRSAPrivateKey(pemBytes []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidPrivateKey
	}

	//nolint:staticcheck // deployed key material still uses legacy encrypted PEM
	if x509.IsEncryptedPEMBlock(block) {
		//nolint:staticcheck
		der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		key, err := parsePrivateKeyDER(der)
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

func parsePrivateKeyDER(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return key, nil
}

// ParseRSAPublicKey parses a PEM-encoded RSA public key.
func ParseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return key, nil
}
