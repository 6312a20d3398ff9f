package auth

import (
	"crypto/rand"
	"math/big"
)

const codeLength = 6

// GenerateCode — 6 цифр, каждая независимо и равномерно из 0–9,
// только crypto/rand (коды подбираемы, обычный PRNG не годится).
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
