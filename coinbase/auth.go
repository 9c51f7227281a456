// Package coinbase authenticates facilitator calls against the Coinbase
// Developer Platform (CDP): short-lived JWTs minted per request from a
// CDP API key.
package coinbase

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// CDPAuth holds a parsed CDP API key and mints request JWTs. Immutable
// after construction and safe for concurrent use.
type CDPAuth struct {
	apiKeyID   string
	privateKey interface{}
	algorithm  jose.SignatureAlgorithm
}

// apiKeyClaims is the CDP JWT claim set: standard claims plus the uris
// array binding the token to one method+host+path.
type apiKeyClaims struct {
	*jwt.Claims
	URIs []string `json:"uris"`
}

// NewCDPAuth parses a CDP API key. The secret is either a PEM-encoded EC
// private key (SEC1 or PKCS#8, the legacy key format) or a base64-encoded
// Ed25519 key (the current format: a 64-byte private key or 32-byte seed).
func NewCDPAuth(apiKeyID, apiKeySecret string) (*CDPAuth, error) {
	if apiKeyID == "" {
		return nil, fmt.Errorf("apiKeyID must not be empty")
	}
	if apiKeySecret == "" {
		return nil, fmt.Errorf("apiKeySecret must not be empty")
	}

	key, alg, err := parseAPIKeySecret(apiKeySecret)
	if err != nil {
		return nil, err
	}

	return &CDPAuth{
		apiKeyID:   apiKeyID,
		privateKey: key,
		algorithm:  alg,
	}, nil
}

func parseAPIKeySecret(secret string) (interface{}, jose.SignatureAlgorithm, error) {
	if block, _ := pem.Decode([]byte(secret)); block != nil {
		if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
			return key, jose.ES256, nil
		}
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse PEM private key: %w", err)
		}
		switch k := key.(type) {
		case *ecdsa.PrivateKey:
			return k, jose.ES256, nil
		case ed25519.PrivateKey:
			return k, jose.EdDSA, nil
		default:
			return nil, "", fmt.Errorf("unsupported private key type %T: must be ECDSA or Ed25519", key)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode key: not PEM and not base64: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), jose.EdDSA, nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), jose.EdDSA, nil
	default:
		return nil, "", fmt.Errorf("unsupported Ed25519 key length %d: want %d or %d bytes", len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}

// GenerateJWT mints a 2-minute token authorizing one request. The uris
// claim binds it to "{METHOD} {host}{path}".
func (a *CDPAuth) GenerateJWT(method, host, path string) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: a.algorithm, Key: a.privateKey},
		(&jose.SignerOptions{}).
			WithType("JWT").
			WithHeader("kid", a.apiKeyID).
			WithHeader("nonce", nonce),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create JWT signer: %w", err)
	}

	now := time.Now()
	claims := &apiKeyClaims{
		Claims: &jwt.Claims{
			Subject:   a.apiKeyID,
			Issuer:    "cdp",
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(2 * time.Minute)),
		},
		URIs: []string{fmt.Sprintf("%s %s%s", method, host, path)},
	}

	token, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize JWT: %w", err)
	}
	return token, nil
}

// generateNonce returns 16 random bytes as hex, the replay-protection
// header CDP requires on every token.
func generateNonce() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
