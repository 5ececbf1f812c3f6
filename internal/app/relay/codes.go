package relay

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Join codes avoid characters that are easy to misread when shared aloud.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// newJoinCode returns a random code for which taken reports false.
func newJoinCode(taken func(string) bool) (string, error) {
	for {
		var b strings.Builder
		b.Grow(CodeLength)
		for i := 0; i < CodeLength; i++ {
			idx, err := randomIndex(len(codeAlphabet))
			if err != nil {
				return "", err
			}
			b.WriteByte(codeAlphabet[idx])
		}
		code := b.String()
		if !taken(code) {
			return code, nil
		}
	}
}

// NormalizeCode makes code lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
