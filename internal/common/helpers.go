package common

import (
	"fmt"
	"math/big"
	"strings"
)

// NativeDecimals is the decimal count of every supported chain's native
// asset (wei-style 18 decimals).
const NativeDecimals = 18

// FormatUnits converts a raw integer balance to a decimal string by
// inserting the decimal point, without float precision loss.
// Example: FormatUnits(big 1500000000000000000, 18) = "1.5"
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	s := raw.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	// Pad with leading zeros if needed
	for len(s) <= decimals {
		s = "0" + s
	}

	pos := len(s) - decimals
	whole, frac := s[:pos], s[pos:]

	frac = strings.TrimRight(frac, "0")
	out := whole
	if frac != "" {
		out = whole + "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string to a raw integer balance by
// removing the decimal point, without float precision loss. Fractional
// digits beyond the asset's decimals are truncated. Negative amounts
// are rejected.
// Example: ParseUnits("0.05", 18) = 50000000000000000
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		return big.NewInt(0), nil
	}

	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// AmountToFloat converts a raw integer balance to a float for fiat math.
// Display only; never used for on-chain amounts.
func AmountToFloat(raw *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(raw)
	div := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, div).Float64()
	return out
}
