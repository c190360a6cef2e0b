package common

import (
	"crypto/rand"
	"math/big"
)

// RandomString returns a string of length n whose characters are drawn
// uniformly from charset using crypto/rand.
func RandomString(n int, charset string) (string, error) {
	if n <= 0 || charset == "" {
		return "", nil
	}
	max := big.NewInt(int64(len(charset)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}

// WipeByteArray overwrites the slice with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
