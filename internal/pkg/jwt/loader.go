// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

type Config struct {
	PubPath  string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// LoadAndBuild reads the auth service's public key and builds a verifier.
// This service never signs tokens; issuance is the auth collaborator's.
func LoadAndBuild(cfg Config) (*Verifier, error) {
	pub, err := loadPublicKey(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT public key: %w", err)
	}
	return NewVerifier(pub, cfg.Issuer, cfg.Audience), nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key in %s is not RSA", path)
	}
	return pub, nil
}
