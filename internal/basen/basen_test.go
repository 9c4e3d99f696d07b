package basen

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayToBigInt_LeastSignificantFirst(t *testing.T) {
	v, err := ArrayToBigInt([]int{1, 2, 3}, 7)
	require.NoError(t, err)
	// 1 + 2*7 + 3*49
	assert.Equal(t, int64(162), v.Int64())
}

func TestArrayToBigInt_RejectsBadInput(t *testing.T) {
	_, err := ArrayToBigInt([]int{0, 7}, 7)
	assert.Error(t, err)

	_, err = ArrayToBigInt([]int{-1}, 7)
	assert.Error(t, err)

	_, err = ArrayToBigInt([]int{0}, 1)
	assert.Error(t, err)
}

func TestArrayRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		base   int
		digits []int
	}{
		{"empty", 7, []int{}},
		{"zeros", 7, make([]int, 48)},
		{"binary", 2, []int{1, 0, 1, 1, 0, 0, 1}},
		{"trailing zeros", 10, []int{9, 9, 0, 0, 0}},
		{"full base 7", 7, []int{6, 5, 4, 3, 2, 1, 0, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6}},
		{"base 64", 64, []int{63, 0, 1, 62}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ArrayToBigInt(tc.digits, tc.base)
			require.NoError(t, err)
			assert.Equal(t, tc.digits, BigIntToArray(v, tc.base, len(tc.digits)))
		})
	}
}

func TestBigIntToArray_PadsAndTruncates(t *testing.T) {
	assert.Equal(t, []int{2, 0, 0, 0}, BigIntToArray(big.NewInt(2), 10, 4))
	assert.Equal(t, []int{3, 2}, BigIntToArray(big.NewInt(123), 10, 2))
	assert.Equal(t, []int{0, 0}, BigIntToArray(nil, 10, 2))
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(big.NewInt(48), 7, 2))
	assert.False(t, Fits(big.NewInt(49), 7, 2))
	assert.False(t, Fits(big.NewInt(-1), 7, 2))
}

func TestBigIntToBase64URL_Zero(t *testing.T) {
	assert.Equal(t, "A", BigIntToBase64URL(big.NewInt(0)))
	assert.Equal(t, "A", BigIntToBase64URL(nil))
}

func TestBigIntToBase64URL_Digits(t *testing.T) {
	assert.Equal(t, "B", BigIntToBase64URL(big.NewInt(1)))
	assert.Equal(t, "_", BigIntToBase64URL(big.NewInt(63)))
	assert.Equal(t, "BA", BigIntToBase64URL(big.NewInt(64)))
	assert.Equal(t, "__", BigIntToBase64URL(big.NewInt(4095)))
}

func TestBase64URLRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("123456789012345678901234567890123456789", 10)
	require.True(t, ok)

	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(63), big.NewInt(64), big.NewInt(1 << 40), huge} {
		s := BigIntToBase64URL(v)
		got, err := Base64URLToBigInt(s)
		require.NoError(t, err, s)
		assert.Equal(t, 0, v.Cmp(got), "round trip of %s via %q", v, s)
	}
}

func TestBase64URLToBigInt_InvalidCharacter(t *testing.T) {
	_, err := Base64URLToBigInt("AB+C")
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Position)
	assert.Equal(t, byte('+'), de.Char)
	assert.Contains(t, err.Error(), "position 2")
}

func TestBase64URLToBigInt_Empty(t *testing.T) {
	_, err := Base64URLToBigInt("")
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestEncodeFixed(t *testing.T) {
	s, err := EncodeFixed(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "AA", s)

	s, err = EncodeFixed(65, 2)
	require.NoError(t, err)
	assert.Equal(t, "BB", s)

	_, err = EncodeFixed(4096, 2)
	assert.Error(t, err)

	_, err = EncodeFixed(-1, 2)
	assert.Error(t, err)
}

func TestDecodeFixed(t *testing.T) {
	v, err := DecodeFixed("BB")
	require.NoError(t, err)
	assert.Equal(t, 65, v)

	_, err = DecodeFixed("B*")
	assert.Error(t, err)
}

func TestDigitValue(t *testing.T) {
	assert.Equal(t, 0, DigitValue('A'))
	assert.Equal(t, 26, DigitValue('a'))
	assert.Equal(t, 52, DigitValue('0'))
	assert.Equal(t, 62, DigitValue('-'))
	assert.Equal(t, 63, DigitValue('_'))
	assert.Equal(t, -1, DigitValue('='))
}
