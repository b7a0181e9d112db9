// Package core provides the budgeting domain model.
//
// This file contains amount parsing and the dual-currency display helpers.
// All amounts are stored in INR; USD values are derived at a fixed
// documented rate, not a live one.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// USDConversionRate is the fixed INR-per-USD rate used for display
// conversion. A documented approximation, not a market rate.
const USDConversionRate = 83

// ParseAmount converts a decimal string to an Amount. It tolerates a leading
// rupee symbol and digit-group commas ("₹1,234.56" -> 1234.56). Negative,
// non-finite, and malformed values are rejected.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	a := Amount(f)
	if err := a.Validate(); err != nil {
		return 0, err
	}
	return a, nil
}

// UnmarshalJSON accepts an amount as either a JSON number or a decimal
// string ("1234.56", "₹1,234.56"). The original clients post string amounts
// from form inputs, so both arrive on the wire.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// ConvertINRToUSD converts an INR amount to USD at the fixed rate.
func ConvertINRToUSD(a Amount) Amount {
	return a / USDConversionRate
}

// DisplayINR formats the absolute value with a rupee prefix, Indian digit
// grouping (1,23,456.78) and two fraction digits. Non-finite input fails
// with ErrInvalidAmount instead of producing garbage text.
func DisplayINR(a Amount) (string, error) {
	if !a.IsFinite() {
		return "", ErrInvalidAmount
	}
	f := float64(a)
	if f < 0 {
		f = -f
	}
	intPart, frac := splitDecimal(f)
	return "₹" + groupIndian(intPart) + "." + frac, nil
}

// DisplayUSD formats the absolute value as US currency with two fraction
// digits, converting from INR at the fixed rate first is the caller's
// choice; this formats the value it is given.
func DisplayUSD(a Amount) (string, error) {
	if !a.IsFinite() {
		return "", ErrInvalidAmount
	}
	f := float64(a)
	if f < 0 {
		f = -f
	}
	intPart, frac := splitDecimal(f)
	return "$" + groupWestern(intPart) + "." + frac, nil
}

// DualDisplay composes "{INR} / {USD}" for an INR amount, converting the
// USD side at the fixed rate.
func DualDisplay(a Amount) (string, error) {
	inr, err := DisplayINR(a)
	if err != nil {
		return "", err
	}
	usd, err := DisplayUSD(ConvertINRToUSD(a))
	if err != nil {
		return "", err
	}
	return inr + " / " + usd, nil
}

// splitDecimal renders a non-negative float with exactly two fraction digits
// and returns the integer and fraction parts separately.
func splitDecimal(f float64) (string, string) {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	return s[:dot], s[dot+1:]
}

// groupIndian inserts en-IN digit grouping: the last three digits form one
// group, everything before that groups in pairs (12345678 -> 1,23,45,678).
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// groupWestern inserts standard thousands grouping (1234567 -> 1,234,567).
func groupWestern(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, ",")
}
