package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	tokenBytes = 16
	codeMin    = 100000
	codeSpan   = 900000
	codeDigits = 6
)

// newToken returns 128 random bits, hex encoded.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// newNumericCode returns a code drawn uniformly from 100000–999999.
func newNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("draw numeric code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// validNumericCode reports whether s is exactly six ASCII digits.
func validNumericCode(s string) bool {
	if len(s) != codeDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
