// Package money содержит десятичную арифметику денежных сумм с фиксированной точностью.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale задаёт количество знаков после запятой у денежных сумм.
const Scale = 2

// maxInputLength ограничивает длину разбираемой строки.
const maxInputLength = 32

// ErrInvalidFormat возвращается, если строку нельзя разобрать как десятичное число.
var ErrInvalidFormat = errors.New("invalid decimal format")

// Money представляет денежную сумму. Нулевое значение соответствует 0.
type Money struct {
	d decimal.Decimal
}

// FromDecimal оборачивает decimal.Decimal в Money без округления.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// Parse разбирает строковое представление суммы, например "10000.00".
// Экспоненциальная запись не принимается.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}
	if len(s) > maxInputLength {
		return Money{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidFormat, maxInputLength)
	}
	if strings.ContainsAny(s, "eE") {
		return Money{}, fmt.Errorf("%w: exponent notation %q", ErrInvalidFormat, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	return Money{d: d}, nil
}

// MustParse как Parse, но паникует при ошибке. Используется для констант и в тестах.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Round2 округляет сумму до двух знаков, половина округляется от нуля.
func (m Money) Round2() Money {
	return Money{d: m.d.Round(Scale)}
}

// Add возвращает сумму без округления.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// MulRate умножает сумму на ставку без округления.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate)}
}

// IsPositive сообщает, что сумма строго больше нуля.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// GreaterThan сравнивает суммы.
func (m Money) GreaterThan(other Money) bool {
	return m.d.GreaterThan(other.d)
}

// FractionDigits возвращает количество значащих знаков после запятой ("1.50" даёт 1).
func (m Money) FractionDigits() int {
	digits := -int(m.d.Exponent())
	if digits <= 0 {
		return 0
	}

	coef := m.d.Coefficient()
	ten := big.NewInt(10)
	rem := new(big.Int)
	for digits > 0 {
		q, r := new(big.Int).QuoRem(coef, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coef = q
		digits--
	}
	return digits
}

// Decimal возвращает значение как decimal.Decimal.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String форматирует сумму ровно с двумя знаками после запятой.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON сериализует сумму строкой, чтобы не терять точность.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}
