package utils

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password an account may register with.
	MinPasswordLength = 6
	// MaxPasswordBytes is bcrypt's input limit; longer passwords are refused rather than truncated.
	MaxPasswordBytes = 72
)

// ErrPasswordLength is returned by HashPassword for passwords outside the accepted length.
var ErrPasswordLength = fmt.Errorf("password must be %d to %d bytes", MinPasswordLength, MaxPasswordBytes)

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// HashPassword hashes a plain password using bcrypt.
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLength || len(plain) > MaxPasswordBytes {
		return "", ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares plain with hashed. An empty hashed always fails after one comparison
// against a decoy hash, matching the cost of a wrong password.
func CheckPassword(plain, hashed string) bool {
	if hashed == "" {
		decoyOnce.Do(func() {
			decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
