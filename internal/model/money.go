package model

import (
	"fmt"
	"math"
)

// Cents is a monetary amount in integer minor units (South African cents).
// Amounts are never carried as floating-point Rand past a parse boundary.
type Cents int64

// RoundCents converts a Rand amount to Cents, rounding half away from zero.
// Rounding happens exactly once per line so errors never compound.
func RoundCents(rand float64) Cents {
	return Cents(math.Round(rand * 100))
}

// Rand returns the amount as floating-point Rand, for display only.
func (c Cents) Rand() float64 {
	return float64(c) / 100
}

// Abs returns the absolute value of the amount.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// String formats the amount as Rand, e.g. "R1 234.56" or "-R0.05".
func (c Cents) String() string {
	neg := ""
	v := c
	if v < 0 {
		neg = "-"
		v = -v
	}
	whole := int64(v) / 100
	frac := int64(v) % 100
	return fmt.Sprintf("%sR%s.%02d", neg, groupThousands(whole), frac)
}

// groupThousands inserts space separators into a non-negative integer,
// matching the convention on municipal bills ("1 234 567").
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
