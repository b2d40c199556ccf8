package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount validates a user-entered decimal amount. It accepts plain
// decimal notation with an optional fractional part and rejects zero,
// negatives, signs and exponents. The normalized string is returned so
// the draft can carry it until the asset decimals are known.
func ParseAmount(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", fmt.Errorf("empty amount")
	}
	whole, frac, err := splitAmount(s)
	if err != nil {
		return "", err
	}
	if isZero(whole) && isZero(frac) {
		return "", fmt.Errorf("amount must be greater than zero")
	}
	if frac == "" {
		return whole, nil
	}
	return whole + "." + frac, nil
}

// ScaleAmount converts a validated decimal amount string into the asset's
// smallest units using integer arithmetic only. Fractional digits beyond
// the asset's precision are rejected rather than truncated.
func ScaleAmount(amount string, decimals int) (int64, error) {
	whole, frac, err := splitAmount(amount)
	if err != nil {
		return 0, err
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("at most %d decimal places allowed", decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	units, err := strconv.ParseInt(strings.TrimLeft(whole+frac, "0"), 10, 64)
	if err != nil {
		if isZero(whole + frac) {
			return 0, fmt.Errorf("amount must be greater than zero")
		}
		return 0, fmt.Errorf("amount out of range")
	}
	if units <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return units, nil
}

// FormatAmount renders smallest units back into a human decimal string.
func FormatAmount(units int64, decimals int) string {
	s := strconv.FormatInt(units, 10)
	if decimals <= 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole := s[:len(s)-decimals]
	frac := strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func splitAmount(s string) (whole, frac string, err error) {
	whole, frac, found := strings.Cut(s, ".")
	if !found {
		frac = ""
	}
	if whole == "" || !digitsOnly(whole) {
		return "", "", fmt.Errorf("invalid amount %q", s)
	}
	if found && (frac == "" || !digitsOnly(frac)) {
		return "", "", fmt.Errorf("invalid amount %q", s)
	}
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	frac = strings.TrimRight(frac, "0")
	return whole, frac, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isZero(s string) bool {
	return strings.Trim(s, "0") == ""
}
