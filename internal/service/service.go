// Package service реализует бизнес-логику сервиса выставления счетов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
	"github.com/mmeshcher/invoice-service/internal/pagination"
	"github.com/mmeshcher/invoice-service/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном email или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, u model.NewUser) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	InsertInvoice(ctx context.Context, inv model.PendingInvoice) (*model.Invoice, error)
	QueryInvoices(ctx context.Context, ownerID int64, dr model.DateRange, offset, limit int) ([]model.Invoice, int64, error)
}

// InvoiceFactory рассчитывает новый счёт.
type InvoiceFactory interface {
	CreatePendingInvoice(ownerID int64, paymentAmount money.Money, paymentDueDate time.Time) (model.PendingInvoice, error)
}

// Service содержит бизнес-логику сервиса выставления счетов.
type Service struct {
	repo         Repository
	factory      InvoiceFactory
	passwordCost int
}

// Option настраивает Service.
type Option func(*Service)

// WithPasswordCost задаёт стоимость bcrypt. В тестах удобно использовать bcrypt.MinCost.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.passwordCost = cost
	}
}

// NewService создаёт новый сервис с указанным репозиторием и фабрикой счетов.
func NewService(repo Repository, factory InvoiceFactory, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		factory:      factory,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует новую компанию.
func (s *Service) RegisterUser(ctx context.Context, companyName, name, email, password string) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, model.NewUser{
		CompanyName:  companyName,
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
	})
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// RegisterInvoice рассчитывает и сохраняет новый счёт. Возвращает ровно то, что вернуло
// хранилище; ошибки хранилища не оборачиваются и не повторяются.
func (s *Service) RegisterInvoice(ctx context.Context, ownerID int64, paymentAmount money.Money, paymentDueDate time.Time) (*model.Invoice, error) {
	pending, err := s.factory.CreatePendingInvoice(ownerID, paymentAmount, paymentDueDate)
	if err != nil {
		return nil, err
	}

	return s.repo.InsertInvoice(ctx, pending)
}

// ListInvoices возвращает страницу счетов владельца с фильтром по сроку оплаты.
func (s *Service) ListInvoices(ctx context.Context, ownerID int64, dr model.DateRange, req pagination.PageRequest) (*pagination.Page[model.Invoice], error) {
	rows, total, err := s.repo.QueryInvoices(ctx, ownerID, dr, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []model.Invoice{}
	}

	return &pagination.Page[model.Invoice]{
		Content:       rows,
		TotalElements: total,
		Request:       req,
	}, nil
}
