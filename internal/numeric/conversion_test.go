package numeric

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount_DecimalStrings(t *testing.T) {
	assert.Equal(t, sdkmath.NewInt(12345), NormalizeAmount("12345"))
	assert.Equal(t, sdkmath.NewInt(0), NormalizeAmount("0"))
	assert.Equal(t, sdkmath.NewInt(42), NormalizeAmount("  42  "))
}

func TestNormalizeAmount_BigNumberShapedValues(t *testing.T) {
	big := "123456789012345678901234567890"
	result := NormalizeAmount(big)
	assert.Equal(t, big, result.String())
}

func TestNormalizeAmount_HexStrings(t *testing.T) {
	assert.Equal(t, sdkmath.NewInt(255), NormalizeAmount("0xff"))
	assert.Equal(t, sdkmath.NewInt(255), NormalizeAmount("0XFF"))
	assert.Equal(t, sdkmath.NewInt(4096), NormalizeAmount("0x1000"))
}

func TestNormalizeAmount_DecimalPointTruncates(t *testing.T) {
	assert.Equal(t, sdkmath.NewInt(123), NormalizeAmount("123.999"))
	assert.True(t, sdkmath.NewInt(0).Equal(NormalizeAmount("0.5")))
}

func TestNormalizeAmount_MalformedInputNormalizesToZero(t *testing.T) {
	assert.True(t, NormalizeAmount("").IsZero())
	assert.True(t, NormalizeAmount("   ").IsZero())
	assert.True(t, NormalizeAmount("not-a-number").IsZero())
	assert.True(t, NormalizeAmount("0xzz").IsZero())
	assert.True(t, NormalizeAmount("12abc").IsZero())
}

func TestNormalizeAmount_NegativesNormalizeToZero(t *testing.T) {
	assert.True(t, NormalizeAmount("-5").IsZero())
	assert.True(t, NormalizeAmount("-0.5").IsZero())
}

func TestIntToFloat64(t *testing.T) {
	v, err := IntToFloat64(sdkmath.NewInt(1_500_000_000), 9)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-12)

	v, err = IntToFloat64(sdkmath.NewInt(2_500_000), 6)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12)

	v, err = IntToFloat64(sdkmath.ZeroInt(), 6)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestIntToFloat64_Errors(t *testing.T) {
	_, err := IntToFloat64(sdkmath.NewInt(1), -1)
	assert.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = IntToFloat64(sdkmath.NewInt(1), 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = IntToFloat64(sdkmath.Int{}, 6)
	assert.ErrorIs(t, err, ErrAmountNil)

	_, err = IntToFloat64(sdkmath.NewInt(-1), 6)
	assert.ErrorIs(t, err, ErrAmountNegative)
}

func TestMustFloat64_FallsBackToZero(t *testing.T) {
	assert.Equal(t, 0.0, MustFloat64(sdkmath.Int{}, 6))
	assert.Equal(t, 0.0, MustFloat64(sdkmath.NewInt(-1), 6))
	assert.InDelta(t, 1.5, MustFloat64(sdkmath.NewInt(1_500_000), 6), 1e-12)
}

func TestFloat64ToInt(t *testing.T) {
	v, err := Float64ToInt(1.5, 9)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_500_000_000), v)

	v, err = Float64ToInt(0, 6)
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestFloat64ToInt_Errors(t *testing.T) {
	_, err := Float64ToInt(1.5, 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = Float64ToInt(-1.5, 6)
	assert.ErrorIs(t, err, ErrAmountNegative)
}

func TestRoundTrip(t *testing.T) {
	original := 123.456789
	raw, err := Float64ToInt(original, 9)
	require.NoError(t, err)

	back, err := IntToFloat64(raw, 9)
	require.NoError(t, err)
	assert.InDelta(t, original, back, 1e-9)
}
