// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
)

const (
	maxFieldLength    = 255
	minPasswordLength = 8
	// bcrypt не принимает пароли длиннее 72 байт
	maxPasswordBytes  = 72
)

var emailRegexp = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)

// ErrInvalidInput возвращается при некорректных данных регистрации или входа.
var ErrInvalidInput = errors.New("invalid input")

// ParsePaymentAmount разбирает сумму платежа. Допускается не более двух знаков после запятой.
// Положительность и верхнюю границу проверяет фабрика счетов.
func ParsePaymentAmount(raw string) (money.Money, error) {
	m, err := money.Parse(raw)
	if err != nil {
		return money.Money{}, fmt.Errorf("%w: %v", model.ErrInvalidAmount, err)
	}
	if m.FractionDigits() > money.Scale {
		return money.Money{}, fmt.Errorf("%w: %q has more than %d decimal places", model.ErrInvalidAmount, raw, money.Scale)
	}
	return m, nil
}

// SignupInput содержит данные регистрации компании.
type SignupInput struct {
	CompanyName string
	Name        string
	Email       string
	Password    string
}

// ValidateSignup проверяет данные регистрации.
func ValidateSignup(in SignupInput) error {
	if err := requireField("company name", in.CompanyName); err != nil {
		return err
	}
	if err := requireField("name", in.Name); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if strings.TrimSpace(in.Password) == "" {
		return fmt.Errorf("%w: password must not be blank", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password cannot exceed %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

// ValidateLogin проверяет данные входа.
func ValidateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	return requireField("password", password)
}

func validateEmail(email string) error {
	if err := requireField("email", email); err != nil {
		return err
	}
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, name)
	}
	if utf8.RuneCountInString(value) > maxFieldLength {
		return fmt.Errorf("%w: %s cannot exceed %d characters", ErrInvalidInput, name, maxFieldLength)
	}
	return nil
}
