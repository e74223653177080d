package questions

import (
	"crypto/rand"
	"math/big"
)

const (
	// DefaultPasswordLength matches the length of generated cloud passwords.
	DefaultPasswordLength = 12
	passwordAlphabet      = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GeneratePassword returns a random alphanumeric password. Ambiguous
// characters (0, O, 1, l, I) are excluded.
func GeneratePassword(length int) string {
	if length <= 0 {
		length = DefaultPasswordLength
	}

	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out)
}

// PasswordDefault adapts GeneratePassword to a question default function.
func PasswordDefault() any {
	return GeneratePassword(DefaultPasswordLength)
}
