// Package handler содержит HTTP-обработчики API сервиса выставления счетов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/invoice-service/internal/metrics"
	"github.com/mmeshcher/invoice-service/internal/middleware"
	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
	"github.com/mmeshcher/invoice-service/internal/pagination"
	"github.com/mmeshcher/invoice-service/internal/repository"
	"github.com/mmeshcher/invoice-service/internal/service"
	"github.com/mmeshcher/invoice-service/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, companyName, name, email, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	RegisterInvoice(ctx context.Context, ownerID int64, paymentAmount money.Money, paymentDueDate time.Time) (*model.Invoice, error)
	ListInvoices(ctx context.Context, ownerID int64, dr model.DateRange, req pagination.PageRequest) (*pagination.Page[model.Invoice], error)
}

// Handler реализует HTTP-обработчики API сервиса выставления счетов.
type Handler struct {
	service        Service
	pages          *pagination.Policy
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	now            func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, pages *pagination.Policy, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		pages:          pages,
		logger:         logger,
		authMiddleware: auth,
		now:            time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

// handleError переводит ошибку в HTTP-ответ. Подробности пишутся только в лог.
func (h *Handler) handleError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	if model.IsValidationError(err) {
		h.logger.Warn(msg, append(fields, zap.Error(err))...)
		writeError(w, http.StatusBadRequest)
		return
	}

	h.logger.Error(msg, append(fields, zap.Error(err))...)
	writeError(w, http.StatusInternalServerError)
}

type signupRequest struct {
	CompanyName string `json:"companyName"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"companyName"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		CompanyName: u.CompanyName,
		Name:        u.Name,
		Email:       u.Email,
	}
}

// Signup регистрирует новую компанию.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	in := validation.SignupInput{
		CompanyName: req.CompanyName,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
	}
	if err := validation.ValidateSignup(in); err != nil {
		h.logger.Warn("signup validation failed", zap.Error(err))
		writeError(w, http.StatusBadRequest)
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.CompanyName, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.logger.Warn("signup rejected", zap.Error(err))
			writeError(w, http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Login выполняет аутентификацию компании и выдаёт токен доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	if err := validation.ValidateLogin(req.Email, req.Password); err != nil {
		h.logger.Warn("login validation failed", zap.Error(err))
		writeError(w, http.StatusBadRequest)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError)
		return
	}

	token, err := h.authMiddleware.IssueToken(u.ID, u.Email, u.CompanyName)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.Int64("userID", u.ID))
		writeError(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

type createInvoiceRequest struct {
	PaymentAmount  string `json:"paymentAmount"`
	PaymentDueDate string `json:"paymentDueDate"`
}

type invoiceResponse struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"userId"`
	IssueDate      string      `json:"issueDate"`
	PaymentAmount  money.Money `json:"paymentAmount"`
	Fee            money.Money `json:"fee"`
	FeeRate        string      `json:"feeRate"`
	TaxAmount      money.Money `json:"taxAmount"`
	TaxRate        string      `json:"taxRate"`
	TotalAmount    money.Money `json:"totalAmount"`
	PaymentDueDate string      `json:"paymentDueDate"`
	CreatedAt      string      `json:"createdAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

func toInvoiceResponse(inv model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:             inv.ID,
		UserID:         inv.OwnerID,
		IssueDate:      inv.IssueDate.Format(time.DateOnly),
		PaymentAmount:  inv.PaymentAmount,
		Fee:            inv.Fee,
		FeeRate:        inv.FeeRate.StringFixed(money.Scale),
		TaxAmount:      inv.TaxAmount,
		TaxRate:        inv.TaxRate.StringFixed(money.Scale),
		TotalAmount:    inv.TotalAmount,
		PaymentDueDate: inv.PaymentDueDate.Format(time.DateOnly),
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      inv.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateInvoice регистрирует счёт текущей компании.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized)
		return
	}

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	amount, err := validation.ParsePaymentAmount(req.PaymentAmount)
	if err != nil {
		h.handleError(w, "create invoice rejected", err, zap.Int64("userID", userID))
		return
	}

	due, err := validation.ParseDate(req.PaymentDueDate)
	if err != nil {
		h.handleError(w, "create invoice rejected", err, zap.Int64("userID", userID))
		return
	}

	inv, err := h.service.RegisterInvoice(r.Context(), userID, amount, due)
	if err != nil {
		h.handleError(w, "create invoice error", err, zap.Int64("userID", userID))
		return
	}

	metrics.InvoicesRegistered.Inc()
	writeJSON(w, http.StatusCreated, toInvoiceResponse(*inv))
}

type listInvoicesResponse struct {
	Data       []invoiceResponse `json:"data"`
	Pagination pagination.Info   `json:"pagination"`
}

// ListInvoices возвращает страницу счетов текущей компании.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()

	dr, err := validation.ParseDateRange(optionalParam(query, "startDate"), optionalParam(query, "endDate"))
	if err != nil {
		h.handleError(w, "list invoices rejected", err, zap.Int64("userID", userID))
		return
	}

	page, err := optionalIntParam(query, "page")
	if err != nil {
		h.handleError(w, "list invoices rejected", err, zap.Int64("userID", userID))
		return
	}
	size, err := optionalIntParam(query, "size")
	if err != nil {
		h.handleError(w, "list invoices rejected", err, zap.Int64("userID", userID))
		return
	}

	pageReq, err := h.pages.Normalize(page, size)
	if err != nil {
		h.handleError(w, "list invoices rejected", err, zap.Int64("userID", userID))
		return
	}

	result, err := h.service.ListInvoices(r.Context(), userID, dr, pageReq)
	if err != nil {
		h.handleError(w, "list invoices error", err, zap.Int64("userID", userID))
		return
	}

	resp := listInvoicesResponse{
		Data:       make([]invoiceResponse, 0, len(result.Content)),
		Pagination: pagination.Describe(*result),
	}
	for _, inv := range result.Content {
		resp.Data = append(resp.Data, toInvoiceResponse(inv))
	}

	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// optionalParam отличает отсутствующий параметр (nil) от переданного пустым.
func optionalParam(query map[string][]string, name string) *string {
	values, ok := query[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func optionalIntParam(query map[string][]string, name string) (*int, error) {
	raw := optionalParam(query, name)
	if raw == nil {
		return nil, nil
	}

	v, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", model.ErrInvalidPageRequest, name)
	}
	return &v, nil
}
