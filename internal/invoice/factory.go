// Package invoice рассчитывает комиссию, налог и итоговую сумму нового счёта.
package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/invoice-service/internal/clock"
	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
)

// Config содержит ставки и ограничения, применяемые при создании счёта.
type Config struct {
	FeeRate          decimal.Decimal
	TaxRate          decimal.Decimal
	MaxPaymentAmount money.Money
	// DueDateHorizonYears задаёт, на сколько лет вперёд от сегодняшнего дня может быть назначен срок оплаты.
	DueDateHorizonYears int
}

// DefaultConfig возвращает ставки 4% комиссии и 10% налога с комиссии.
func DefaultConfig() Config {
	return Config{
		FeeRate:             decimal.RequireFromString("0.04"),
		TaxRate:             decimal.RequireFromString("0.10"),
		MaxPaymentAmount:    money.MustParse("9999999999999.99"),
		DueDateHorizonYears: 1,
	}
}

// Factory создаёт PendingInvoice. Безопасна для конкурентного использования.
type Factory struct {
	cfg   Config
	clock clock.Clock
}

// NewFactory создаёт фабрику счетов. Если c равен nil, используются системные часы.
func NewFactory(cfg Config, c clock.Clock) *Factory {
	if c == nil {
		c = clock.System{}
	}
	return &Factory{cfg: cfg, clock: c}
}

// CreatePendingInvoice проверяет сумму и срок оплаты и рассчитывает новый счёт.
// ownerID не проверяется: за него отвечает вызывающая сторона.
func (f *Factory) CreatePendingInvoice(ownerID int64, paymentAmount money.Money, paymentDueDate time.Time) (model.PendingInvoice, error) {
	if !paymentAmount.IsPositive() {
		return model.PendingInvoice{}, fmt.Errorf("%w: %s must be positive", model.ErrInvalidAmount, paymentAmount)
	}
	if paymentAmount.GreaterThan(f.cfg.MaxPaymentAmount) {
		return model.PendingInvoice{}, fmt.Errorf("%w: %s exceeds %s", model.ErrInvalidAmount, paymentAmount, f.cfg.MaxPaymentAmount)
	}

	today := clock.Today(f.clock)
	due := clock.DateOf(paymentDueDate)
	if due.Before(today) {
		return model.PendingInvoice{}, fmt.Errorf("%w: %s is in the past", model.ErrInvalidDueDate, due.Format(time.DateOnly))
	}
	if limit := today.AddDate(f.cfg.DueDateHorizonYears, 0, 0); due.After(limit) {
		return model.PendingInvoice{}, fmt.Errorf("%w: %s is after %s", model.ErrInvalidDueDate, due.Format(time.DateOnly), limit.Format(time.DateOnly))
	}

	fee, tax, total := f.Amounts(paymentAmount)

	return model.PendingInvoice{
		OwnerID:        ownerID,
		IssueDate:      today,
		PaymentAmount:  paymentAmount,
		FeeRate:        f.cfg.FeeRate,
		Fee:            fee,
		TaxRate:        f.cfg.TaxRate,
		TaxAmount:      tax,
		TotalAmount:    total,
		PaymentDueDate: due,
	}, nil
}

// Amounts рассчитывает комиссию, налог и итог. Каждое значение округляется отдельно,
// итог складывается из исходной суммы и уже округлённых комиссии и налога.
func (f *Factory) Amounts(paymentAmount money.Money) (fee, tax, total money.Money) {
	fee = paymentAmount.MulRate(f.cfg.FeeRate).Round2()
	tax = fee.MulRate(f.cfg.TaxRate).Round2()
	total = paymentAmount.Add(fee).Add(tax).Round2()
	return fee, tax, total
}
