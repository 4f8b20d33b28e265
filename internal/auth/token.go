// Package auth issues and verifies the opaque bearer tokens used by the API.
// Tokens are HMAC-signed (subject, expiry) pairs; clients must treat them as
// opaque strings.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken covers tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Issuer mints and verifies bearer tokens for a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer. TTL falls back to 30 minutes when unset.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for the given subject (user ID).
func (i *Issuer) Issue(subject string) (string, error) {
	return i.issueAt(subject, time.Now().Add(i.ttl))
}

func (i *Issuer) issueAt(subject string, expiry time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	payload := fmt.Sprintf("%s\n%d", subject, expiry.Unix())
	sig := i.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify checks the signature and expiry and returns the subject.
func (i *Issuer) Verify(token string) (string, error) {
	payloadB64, sigB64, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sig, i.sign(string(payload))) {
		return "", ErrInvalidToken
	}

	subject, expiryRaw, ok := strings.Cut(string(payload), "\n")
	if !ok || subject == "" {
		return "", ErrInvalidToken
	}
	expiry, err := strconv.ParseInt(expiryRaw, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().Unix() > expiry {
		return "", ErrExpiredToken
	}
	return subject, nil
}

func (i *Issuer) sign(payload string) []byte {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// HashPassword hashes a password for storage and comparison.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword compares a candidate password against a stored hash.
func CheckPassword(password, hash string) bool {
	return hmac.Equal([]byte(HashPassword(password)), []byte(hash))
}
