package amount

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed fractional scale shared by every monetary value in
// the ledger. Amounts are stored as integer base units over 10^Decimals so
// arithmetic never touches binary floating point.
const Decimals = 18

var (
	scale    = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	bpsDenom = big.NewInt(10_000)
)

// Amount is a non-negative fixed-point decimal with exactly 18 fractional
// digits. The zero value is usable and equals zero. All operations return
// fresh values; an Amount is never mutated in place.
type Amount struct {
	units *big.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{units: big.NewInt(0)}
}

// FromUnits builds an Amount from raw base units (10^-18). Negative inputs
// fail with ErrInvalidAmount.
func FromUnits(units *big.Int) (Amount, error) {
	if units == nil {
		return Zero(), nil
	}
	if units.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative base units", ErrInvalidAmount)
	}
	return Amount{units: new(big.Int).Set(units)}, nil
}

// Parse converts a decimal string into an Amount. The input must be a plain
// non-negative decimal with at most 18 fractional digits; scientific
// notation, signs, and empty strings fail with ErrInvalidAmount.
func Parse(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	intPart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		intPart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
	}
	if intPart == "" || fracPart == "" && strings.Contains(trimmed, ".") {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(fracPart) > Decimals {
		return Amount{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, Decimals)
	}
	if !digitsOnly(intPart) || (fracPart != "" && !digitsOnly(fracPart)) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units.Mul(units, scale)
	if fracPart != "" {
		frac, ok := new(big.Int).SetString(fracPart, 10)
		if !ok {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		pad := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals-len(fracPart))), nil)
		units.Add(units, frac.Mul(frac, pad))
	}
	return Amount{units: units}, nil
}

// MustParse is Parse for trusted literals and panics on failure.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (a Amount) raw() *big.Int {
	if a.units == nil {
		return big.NewInt(0)
	}
	return a.units
}

// Units returns a copy of the raw base units.
func (a Amount) Units() *big.Int {
	return new(big.Int).Set(a.raw())
}

// String renders the canonical decimal form with exactly 18 fractional
// digits and no scientific notation.
func (a Amount) String() string {
	units := a.raw()
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(units, scale, rem)
	return fmt.Sprintf("%s.%018s", quo.String(), rem.String())
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{units: new(big.Int).Add(a.raw(), b.raw())}
}

// Sub returns a - b, failing with ErrUnderflow when the result would be
// negative. Callers decide whether to surface the error or clamp to zero.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff := new(big.Int).Sub(a.raw(), b.raw())
	if diff.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return Amount{units: diff}, nil
}

// Cmp compares a against b, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.raw().Cmp(b.raw()) }

// Sign reports 0 for zero and 1 otherwise.
func (a Amount) Sign() int { return a.raw().Sign() }

// IsZero reports whether the amount equals zero.
func (a Amount) IsZero() bool { return a.raw().Sign() == 0 }

// MulInt returns a × n.
func (a Amount) MulInt(n uint64) Amount {
	return Amount{units: new(big.Int).Mul(a.raw(), new(big.Int).SetUint64(n))}
}

// DivInt returns a / n rounded toward zero. Division by zero fails with
// ErrDivisionByZero.
func (a Amount) DivInt(n uint64) (Amount, error) {
	if n == 0 {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{units: new(big.Int).Quo(a.raw(), new(big.Int).SetUint64(n))}, nil
}

// MulRate returns a × num / den rounded toward zero. The multiplication runs
// before the division so no precision is lost ahead of the single floor.
func (a Amount) MulRate(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.raw(), new(big.Int).SetUint64(num))
	return Amount{units: product.Quo(product, new(big.Int).SetUint64(den))}, nil
}

// MulBps returns a × bps / 10_000 rounded toward zero. A bps value above
// 10_000 scales the amount up, e.g. 20_000 doubles it.
func (a Amount) MulBps(bps uint32) Amount {
	product := new(big.Int).Mul(a.raw(), new(big.Int).SetUint64(uint64(bps)))
	return Amount{units: product.Quo(product, bpsDenom)}
}

// Mul returns a × b where b is interpreted as a fixed-point factor, i.e. the
// result is a.units × b.units / 10^18 rounded toward zero. This is the
// (amount × rate) primitive used by reward accrual.
func (a Amount) Mul(b Amount) Amount {
	product := new(big.Int).Mul(a.raw(), b.raw())
	return Amount{units: product.Quo(product, scale)}
}

// MarshalJSON encodes the canonical decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	a.units = parsed.units
	return nil
}
