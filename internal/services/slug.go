package services

import "crypto/rand"

const (
	shareSlugLength   = 8
	shareSlugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// newShareSlug produces a random lowercase-alphanumeric slug used as a
// shareable URL identifier.
func newShareSlug() (string, error) {
	b := make([]byte, shareSlugLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = shareSlugAlphabet[int(b[i])%len(shareSlugAlphabet)]
	}
	return string(b), nil
}
