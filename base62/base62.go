package base62

import (
	"errors"
	"math/big"
	"strings"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	base = big.NewInt(int64(len(alphabet)))

	ErrEmptyString      = errors.New("empty string")
	ErrInvalidCharacter = errors.New("invalid character")
)

// Encode encodes b, read as a big-endian number, to a base62 string. Every leading zero byte
// becomes a leading '0' so that Decode restores the original length.
func Encode(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b[zeros:])
	mod := new(big.Int)

	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, alphabet[mod.Int64()])
	}

	var sb strings.Builder
	sb.Grow(zeros + len(digits))
	for i := 0; i < zeros; i++ {
		sb.WriteByte(alphabet[0])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(digits[i])
	}
	return sb.String()
}

// Decode decodes a string produced by Encode.
func Decode(encoded string) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, ErrEmptyString
	}

	zeros := 0
	for zeros < len(encoded) && encoded[zeros] == alphabet[0] {
		zeros++
	}

	n := new(big.Int)
	for _, char := range encoded[zeros:] {
		index := strings.IndexRune(alphabet, char)
		if index < 0 {
			return nil, ErrInvalidCharacter
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(index)))
	}

	return append(make([]byte, zeros), n.Bytes()...), nil
}
