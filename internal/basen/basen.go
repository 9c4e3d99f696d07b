// Package basen converts between digit arrays, big integers and the Base64URL alphabet
// used by build share links.
package basen

import (
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the Base64URL digit alphabet, least significant digit value first.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var (
	big64 = big.NewInt(64)

	digitValues = func() [256]int8 {
		var t [256]int8
		for i := range t {
			t[i] = -1
		}
		for i := 0; i < len(Alphabet); i++ {
			t[Alphabet[i]] = int8(i)
		}
		return t
	}()
)

// DecodeError reports input that is not valid Base64URL.
type DecodeError struct {
	Input    string
	Position int
	Char     byte
	Message  string
}

func (e *DecodeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid base64url character %q at position %d", e.Char, e.Position)
}

// DigitValue returns the value of a single alphabet character, or -1.
func DigitValue(c byte) int {
	return int(digitValues[c])
}

// ArrayToBigInt treats values[0] as the least significant digit: Σ values[i]·base^i.
func ArrayToBigInt(values []int, base int) (*big.Int, error) {
	if base < 2 {
		return nil, fmt.Errorf("base must be at least 2, got %d", base)
	}
	b := big.NewInt(int64(base))
	result := new(big.Int)
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if v < 0 || v >= base {
			return nil, fmt.Errorf("digit %d at index %d is out of range for base %d", v, i, base)
		}
		result.Mul(result, b)
		result.Add(result, big.NewInt(int64(v)))
	}
	return result, nil
}

// BigIntToArray returns exactly count base-N digits of v, least significant first.
// Missing high digits are zero; extra high digits are dropped.
func BigIntToArray(v *big.Int, base, count int) []int {
	out := make([]int, count)
	if v == nil || base < 2 || v.Sign() <= 0 {
		return out
	}
	b := big.NewInt(int64(base))
	rest := new(big.Int).Set(v)
	mod := new(big.Int)
	for i := 0; i < count && rest.Sign() > 0; i++ {
		rest.QuoRem(rest, b, mod)
		out[i] = int(mod.Int64())
	}
	return out
}

// Fits reports whether v can be represented by count base-N digits.
func Fits(v *big.Int, base, count int) bool {
	if v == nil || v.Sign() < 0 {
		return false
	}
	limit := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(count)), nil)
	return v.Cmp(limit) < 0
}

// BigIntToBase64URL renders v big-endian over Alphabet. Zero renders as "A".
func BigIntToBase64URL(v *big.Int) string {
	if v == nil || v.Sign() <= 0 {
		return Alphabet[:1]
	}
	rest := new(big.Int).Set(v)
	mod := new(big.Int)
	var digits []byte
	for rest.Sign() > 0 {
		rest.QuoRem(rest, big64, mod)
		digits = append(digits, Alphabet[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// Base64URLToBigInt parses a big-endian Base64URL digit string.
func Base64URLToBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, &DecodeError{Input: s, Message: "empty base64url value"}
	}
	result := new(big.Int)
	for i := 0; i < len(s); i++ {
		d := digitValues[s[i]]
		if d < 0 {
			return nil, &DecodeError{Input: s, Position: i, Char: s[i]}
		}
		result.Mul(result, big64)
		result.Add(result, big.NewInt(int64(d)))
	}
	return result, nil
}

// EncodeFixed renders v as exactly width Base64URL characters, left-padded with 'A'.
func EncodeFixed(v, width int) (string, error) {
	if v < 0 {
		return "", fmt.Errorf("value %d is negative", v)
	}
	max := 1
	for i := 0; i < width; i++ {
		max *= 64
	}
	if v >= max {
		return "", fmt.Errorf("value %d does not fit in %d base64url characters", v, width)
	}
	s := BigIntToBase64URL(big.NewInt(int64(v)))
	return strings.Repeat(Alphabet[:1], width-len(s)) + s, nil
}

// DecodeFixed parses a fixed-width Base64URL field.
func DecodeFixed(s string) (int, error) {
	v, err := Base64URLToBigInt(s)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, &DecodeError{Input: s, Message: fmt.Sprintf("base64url value %q overflows", s)}
	}
	return int(v.Int64()), nil
}
