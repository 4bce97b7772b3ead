package staking

import (
	"fmt"
	"math/big"
	"strings"
)

// AmountDecimals is the fixed decimal scale shared by every balance, stake,
// reward, and fee the ledger tracks (lamports-style base units).
const AmountDecimals = 9

// amountScale is 10^AmountDecimals.
var amountScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// addAmount returns a+b. Both operands must be non-negative base-unit
// amounts; nil is treated as zero.
func addAmount(a, b *big.Int) *big.Int {
	return new(big.Int).Add(copyBigInt(a), copyBigInt(b))
}

// subAmount returns a-b, failing with ErrUnderflow when the result would be
// negative. Amounts are unsigned; there is no silent wrap.
func subAmount(a, b *big.Int) (*big.Int, error) {
	left := copyBigInt(a)
	right := copyBigInt(b)
	if left.Cmp(right) < 0 {
		return nil, ErrUnderflow
	}
	return left.Sub(left, right), nil
}

// mulRatio returns floor(v * num / den). Flooring means proportional splits
// can never hand out more than the whole.
func mulRatio(v, num, den *big.Int) (*big.Int, error) {
	if den == nil || den.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	product := new(big.Int).Mul(copyBigInt(v), copyBigInt(num))
	return product.Div(product, den), nil
}

// mulBps returns floor(v * bps / 10_000).
func mulBps(v *big.Int, bps uint64) *big.Int {
	product := new(big.Int).Mul(copyBigInt(v), new(big.Int).SetUint64(bps))
	return product.Div(product, big.NewInt(BpsDenominator))
}

// FormatAmount renders a base-unit amount in its 9-decimal display form,
// e.g. 1_250_000_000 -> "1.25".
func FormatAmount(v *big.Int) string {
	value := copyBigInt(v)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(value, amountScale, frac)
	if frac.Sign() == 0 {
		return whole.String()
	}
	digits := fmt.Sprintf("%09d", frac)
	digits = strings.TrimRight(digits, "0")
	return whole.String() + "." + digits
}

// ParseAmount parses the 9-decimal display form back into base units. It
// rejects negatives, malformed input, and more than nine fractional digits.
func ParseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, ErrInvalidAmount
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, ErrInvalidAmount
	}
	wholePart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		wholePart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > AmountDecimals {
		return nil, ErrInvalidAmount
	}
	whole, ok := new(big.Int).SetString(wholePart, 10)
	if !ok || whole.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	value := new(big.Int).Mul(whole, amountScale)
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", AmountDecimals-len(fracPart))
		frac, ok := new(big.Int).SetString(padded, 10)
		if !ok || frac.Sign() < 0 {
			return nil, ErrInvalidAmount
		}
		value.Add(value, frac)
	}
	return value, nil
}
