/*

This file is the single numeric normalization boundary for values arriving
from the external position source. Upstream amounts show up as decimal
strings, 0x-prefixed hex strings, or float-shaped strings; everything is
coerced here into a raw sdkmath.Int so nothing past this boundary branches on
the runtime shape of a number. Malformed input normalizes to zero so one
corrupt bucket never aborts a whole evaluation.

*/

package numeric

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// NormalizeAmount coerces an upstream raw-amount string into an sdkmath.Int.
// Accepted shapes: decimal integer strings, 0x-prefixed hex strings, and
// decimal-point strings (truncated). Anything else, including negatives,
// normalizes to zero.
func NormalizeAmount(raw string) sdkmath.Int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return sdkmath.ZeroInt()
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok || v.Sign() < 0 {
			return sdkmath.ZeroInt()
		}
		return sdkmath.NewIntFromBigInt(v)
	}

	if v, ok := new(big.Int).SetString(s, 10); ok {
		if v.Sign() < 0 {
			return sdkmath.ZeroInt()
		}
		return sdkmath.NewIntFromBigInt(v)
	}

	// Decimal-point strings: truncate the fractional part.
	if dec, err := sdkmath.LegacyNewDecFromStr(s); err == nil {
		if dec.IsNegative() {
			return sdkmath.ZeroInt()
		}
		return dec.TruncateInt()
	}

	return sdkmath.ZeroInt()
}

// IntToFloat64 converts an sdkmath.Int of raw token units to a float64 token
// amount using the token's decimal precision.
func IntToFloat64(amount sdkmath.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < decimals; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Quo(factor)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// MustFloat64 is IntToFloat64 with the defensive zero fallback used on the
// valuation path, where a corrupt amount must not abort the whole tick.
func MustFloat64(amount sdkmath.Int, decimals int) float64 {
	v, err := IntToFloat64(amount, decimals)
	if err != nil {
		return 0
	}
	return v
}

// Float64ToInt converts a float64 token amount into raw integer units with
// the given decimal precision, going through a string to avoid floating
// point drift.
func Float64ToInt(amount float64, decimals int) (sdkmath.Int, error) {
	if decimals < 0 || decimals > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}

	formatStr := fmt.Sprintf("%%.%df", decimals)
	amountStr := fmt.Sprintf(formatStr, amount)

	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < decimals; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Mul(factor).TruncateInt()
	if result.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	return result, nil
}
