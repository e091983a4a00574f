// Package auth issues and validates the HMAC bearer tokens that protect the
// admin endpoints (inquiry listing, rep communications).
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed and tampered tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken is returned for well-formed tokens past their expiry.
	ErrExpiredToken = errors.New("auth: token expired")
)

// Signer mints and validates tokens with a shared HMAC-SHA256 secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

func (s *Signer) sign(subject string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fmt.Sprintf("%s:%d", subject, expiresUnix)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Token returns a bearer token of the form subject:expires:signature.
func (s *Signer) Token(subject string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("%s:%d:%s", subject, expires, s.sign(subject, expires))
}

// Verify checks a token and returns its subject. Comparison is constant
// time; expiry is checked only after the signature matches.
func (s *Signer) Verify(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	subject, expiresStr, sig := parts[0], parts[1], parts[2]
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	expected := s.sign(subject, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", ErrInvalidToken
	}
	if s.now().Unix() > expires {
		return "", ErrExpiredToken
	}
	return subject, nil
}
