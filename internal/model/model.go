// Package model содержит доменные сущности сервиса выставления счетов.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/invoice-service/internal/money"
)

// User представляет зарегистрированную компанию, владельца счетов.
type User struct {
	ID           int64
	CompanyName  string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser содержит данные для создания пользователя. Пароль уже захеширован.
type NewUser struct {
	CompanyName  string
	Name         string
	Email        string
	PasswordHash []byte
}

// PendingInvoice описывает рассчитанный, но ещё не сохранённый счёт.
// Fee, TaxAmount и TotalAmount всегда вычисляются из PaymentAmount и ставок.
type PendingInvoice struct {
	OwnerID        int64
	IssueDate      time.Time
	PaymentAmount  money.Money
	FeeRate        decimal.Decimal
	Fee            money.Money
	TaxRate        decimal.Decimal
	TaxAmount      money.Money
	TotalAmount    money.Money
	PaymentDueDate time.Time
}

// Invoice описывает сохранённый счёт. Идентификатор и временные метки назначает хранилище.
type Invoice struct {
	ID             int64
	OwnerID        int64
	IssueDate      time.Time
	PaymentAmount  money.Money
	FeeRate        decimal.Decimal
	Fee            money.Money
	TaxRate        decimal.Decimal
	TaxAmount      money.Money
	TotalAmount    money.Money
	PaymentDueDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DateRange ограничивает выборку по сроку оплаты. Обе границы включительные, nil означает отсутствие ограничения.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains сообщает, попадает ли дата в диапазон.
func (r DateRange) Contains(date time.Time) bool {
	if r.Start != nil && date.Before(*r.Start) {
		return false
	}
	if r.End != nil && date.After(*r.End) {
		return false
	}
	return true
}
