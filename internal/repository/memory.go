package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/invoice-service/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется без настроенной БД и в тестах.
type MemoryRepository struct {
	mu sync.RWMutex

	users       []model.User
	invoices    []model.Invoice
	nextUserID  int64
	nextInvoice int64

	now func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextUserID:  1,
		nextInvoice: 1,
		now:         time.Now,
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// CreateUser создаёт пользователя. Email должен быть уникальным.
func (r *MemoryRepository) CreateUser(_ context.Context, u model.NewUser) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
	}

	now := r.now()
	created := model.User{
		ID:           r.nextUserID,
		CompanyName:  u.CompanyName,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: append([]byte(nil), u.PasswordHash...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.nextUserID++
	r.users = append(r.users, created)

	return &created, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

// InsertInvoice сохраняет счёт, назначая идентификатор и временные метки.
func (r *MemoryRepository) InsertInvoice(_ context.Context, inv model.PendingInvoice) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	created := model.Invoice{
		ID:             r.nextInvoice,
		OwnerID:        inv.OwnerID,
		IssueDate:      inv.IssueDate,
		PaymentAmount:  inv.PaymentAmount,
		FeeRate:        inv.FeeRate,
		Fee:            inv.Fee,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		TotalAmount:    inv.TotalAmount,
		PaymentDueDate: inv.PaymentDueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.nextInvoice++
	r.invoices = append(r.invoices, created)

	return &created, nil
}

// QueryInvoices возвращает страницу счетов владельца в порядке возрастания id и общее
// количество счетов, подходящих под фильтр.
func (r *MemoryRepository) QueryInvoices(_ context.Context, ownerID int64, dr model.DateRange, offset, limit int) ([]model.Invoice, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// invoices уже упорядочены по id: идентификаторы выдаются по возрастанию
	var matched []model.Invoice
	for _, inv := range r.invoices {
		if inv.OwnerID == ownerID && dr.Contains(inv.PaymentDueDate) {
			matched = append(matched, inv)
		}
	}

	total := int64(len(matched))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) || limit <= 0 {
		return []model.Invoice{}, total, nil
	}

	end := len(matched)
	if limit < end-offset {
		end = offset + limit
	}

	page := make([]model.Invoice, end-offset)
	copy(page, matched[offset:end])

	return page, total, nil
}
