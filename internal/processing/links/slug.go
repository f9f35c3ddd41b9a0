package links

import (
	"crypto/rand"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const maxAliasLength = 32

type CryptoSlugger struct{}

func NewCryptoSlugger() *CryptoSlugger { return &CryptoSlugger{} }

func (s *CryptoSlugger) Generate(length int) (string, error) {
	if length <= 0 {
		length = 7
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i := range buf {
		out[i] = base62Alphabet[int(buf[i])%len(base62Alphabet)]
	}

	return string(out), nil
}

// ValidateAlias checks an owner-chosen alias against the allowed-character
// policy: 1 to 32 characters from [A-Za-z0-9_-]. Aliases are case-sensitive.
func ValidateAlias(alias string) error {
	if alias == "" || len(alias) > maxAliasLength {
		return ErrInvalidAlias
	}
	for i := 0; i < len(alias); i++ {
		c := alias[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return ErrInvalidAlias
		}
	}
	return nil
}
