package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Money is an amount in lakhs, the single minor unit used for every price
// and wallet in the system. Display conversion into crores happens only at
// the presentation boundary.
type Money int64

// LakhsPerCrore is the conversion factor between the internal unit and the
// display unit.
const LakhsPerCrore = 100

// Crores returns the amount converted to crores for display.
func (m Money) Crores() float64 {
	return float64(m) / LakhsPerCrore
}

// Lakhs returns the raw minor-unit value.
func (m Money) Lakhs() int64 { return int64(m) }

// String renders the amount in the conventional "<n> L" form.
func (m Money) String() string {
	return fmt.Sprintf("%d L", int64(m))
}

// CroreLabel renders the amount as a crore figure, e.g. "100.00 Cr".
// Negative amounts clamp to zero, matching how purse meters display.
func (m Money) CroreLabel() string {
	c := m.Crores()
	if c < 0 {
		c = 0
	}
	return fmt.Sprintf("%.2f Cr", c)
}

var numberPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)

// ParseMoney extracts a lakh amount from loosely formatted input such as
// "50 L", "1.5 Cr", "5000" or a bare number. Unparseable input yields the
// fallback rather than an error: malformed persisted values must degrade,
// not crash.
func ParseMoney(raw string, fallback Money) Money {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	match := numberPattern.FindString(s)
	if match == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return fallback
	}
	if strings.Contains(strings.ToLower(s), "cr") {
		v *= LakhsPerCrore
	}
	return Money(v)
}
