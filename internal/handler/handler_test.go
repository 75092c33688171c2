package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/invoice-service/internal/middleware"
	"github.com/mmeshcher/invoice-service/internal/model"
	"github.com/mmeshcher/invoice-service/internal/money"
	"github.com/mmeshcher/invoice-service/internal/pagination"
	"github.com/mmeshcher/invoice-service/internal/repository"
	"github.com/mmeshcher/invoice-service/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubService struct {
	registerUser *model.User
	registerErr  error

	authUser *model.User
	authErr  error

	invoice      *model.Invoice
	invoiceErr   error
	invoiceCalls int
	gotAmount    money.Money
	gotDue       time.Time

	page      *pagination.Page[model.Invoice]
	pageErr   error
	listCalls int
	gotOwner  int64
	gotRange  model.DateRange
	gotReq    pagination.PageRequest
}

func (s *stubService) RegisterUser(ctx context.Context, companyName, name, email, password string) (*model.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) RegisterInvoice(ctx context.Context, ownerID int64, amount money.Money, due time.Time) (*model.Invoice, error) {
	s.invoiceCalls++
	s.gotOwner = ownerID
	s.gotAmount = amount
	s.gotDue = due
	return s.invoice, s.invoiceErr
}

func (s *stubService) ListInvoices(ctx context.Context, ownerID int64, dr model.DateRange, req pagination.PageRequest) (*pagination.Page[model.Invoice], error) {
	s.listCalls++
	s.gotOwner = ownerID
	s.gotRange = dr
	s.gotReq = req
	return s.page, s.pageErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	auth := middleware.NewAuthMiddleware(testSecret, "invoice-service", time.Hour)
	return NewHandler(svc, pagination.NewPolicy(pagination.DefaultConfig()), zap.NewNop(), auth)
}

func bearer(t *testing.T, h *Handler, userID int64) string {
	t.Helper()

	token, err := h.authMiddleware.IssueToken(userID, "owner@example.com", "Acme")
	require.NoError(t, err)
	return "Bearer " + token
}

func sampleInvoice() model.Invoice {
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return model.Invoice{
		ID:             7,
		OwnerID:        1,
		IssueDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentAmount:  money.MustParse("10000"),
		FeeRate:        decimal.RequireFromString("0.04"),
		Fee:            money.MustParse("400"),
		TaxRate:        decimal.RequireFromString("0.10"),
		TaxAmount:      money.MustParse("40"),
		TotalAmount:    money.MustParse("10440"),
		PaymentDueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

func TestSignup_Created(t *testing.T) {
	svc := &stubService{
		registerUser: &model.User{ID: 42, CompanyName: "Acme", Name: "Kim", Email: "kim@acme.io"},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(signupRequest{
		CompanyName: "Acme",
		Name:        "Kim",
		Email:       "kim@acme.io",
		Password:    "password1",
	})

	rec := httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, userResponse{ID: 42, CompanyName: "Acme", Name: "Kim", Email: "kim@acme.io"}, resp)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSignup_Errors(t *testing.T) {
	valid := signupRequest{CompanyName: "Acme", Name: "Kim", Email: "kim@acme.io", Password: "password1"}

	tests := []struct {
		name   string
		body   any
		err    error
		status int
	}{
		{name: "malformed json", body: "{", status: http.StatusBadRequest},
		{name: "bad email", body: signupRequest{CompanyName: "Acme", Name: "Kim", Email: "nope", Password: "password1"}, status: http.StatusBadRequest},
		{name: "duplicate email", body: valid, err: repository.ErrUserExists, status: http.StatusConflict},
		{name: "storage failure", body: valid, err: model.NewStorageError("create user", errors.New("down")), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{registerErr: tt.err})

			var payload []byte
			if s, ok := tt.body.(string); ok {
				payload = []byte(s)
			} else {
				payload, _ = json.Marshal(tt.body)
			}

			rec := httptest.NewRecorder()
			h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(payload)))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestLogin_IssuesToken(t *testing.T) {
	svc := &stubService{
		authUser: &model.User{ID: 5, CompanyName: "Acme", Name: "Kim", Email: "kim@acme.io"},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{Email: "kim@acme.io", Password: "password1"})
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.User.ID)

	userID, err := h.authMiddleware.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)
}

func TestLogin_UnauthorizedOnBadCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{authErr: service.ErrInvalidCredentials})

	body, _ := json.Marshal(loginRequest{Email: "kim@acme.io", Password: "wrong-pass"})
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_InternalErrorOnStorageFailure(t *testing.T) {
	h := newTestHandler(t, &stubService{authErr: model.NewStorageError("get user", context.DeadlineExceeded)})

	body, _ := json.Marshal(loginRequest{Email: "kim@acme.io", Password: "password1"})
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateInvoice_Created(t *testing.T) {
	inv := sampleInvoice()
	svc := &stubService{invoice: &inv}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body := []byte(`{"paymentAmount":"10000","paymentDueDate":"2026-04-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, h, 1))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, int64(1), svc.gotOwner)
	assert.Equal(t, "10000.00", svc.gotAmount.String())
	assert.Equal(t, "2026-04-01", svc.gotDue.Format(time.DateOnly))

	assert.JSONEq(t, `{
		"id": 7,
		"userId": 1,
		"issueDate": "2026-03-01",
		"paymentAmount": "10000.00",
		"fee": "400.00",
		"feeRate": "0.04",
		"taxAmount": "40.00",
		"taxRate": "0.10",
		"totalAmount": "10440.00",
		"paymentDueDate": "2026-04-01",
		"createdAt": "2026-03-01T10:30:00Z",
		"updatedAt": "2026-03-01T10:30:00Z"
	}`, rec.Body.String())
}

func TestCreateInvoice_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		status     int
		reachesSvc bool
	}{
		{name: "malformed json", body: `{`, status: http.StatusBadRequest},
		{name: "amount not a number", body: `{"paymentAmount":"abc","paymentDueDate":"2026-04-01"}`, status: http.StatusBadRequest},
		{name: "amount with three decimals", body: `{"paymentAmount":"1.005","paymentDueDate":"2026-04-01"}`, status: http.StatusBadRequest},
		{name: "amount in exponent notation", body: `{"paymentAmount":"1e50000000","paymentDueDate":"2026-04-01"}`, status: http.StatusBadRequest},
		{name: "overlong amount", body: `{"paymentAmount":"1000000000000000000000000000000000000","paymentDueDate":"2026-04-01"}`, status: http.StatusBadRequest},
		{name: "bad due date", body: `{"paymentAmount":"100","paymentDueDate":"01/04/2026"}`, status: http.StatusBadRequest},
		{name: "factory rejects amount", body: `{"paymentAmount":"100","paymentDueDate":"2026-04-01"}`, serviceErr: model.ErrInvalidAmount, status: http.StatusBadRequest, reachesSvc: true},
		{name: "factory rejects due date", body: `{"paymentAmount":"100","paymentDueDate":"2026-04-01"}`, serviceErr: model.ErrInvalidDueDate, status: http.StatusBadRequest, reachesSvc: true},
		{name: "storage failure", body: `{"paymentAmount":"100","paymentDueDate":"2026-04-01"}`, serviceErr: model.NewStorageError("insert invoice", errors.New("down")), status: http.StatusInternalServerError, reachesSvc: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{invoiceErr: tt.serviceErr}
			h := newTestHandler(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(middleware.WithUserID(req.Context(), 1))
			rec := httptest.NewRecorder()

			h.CreateInvoice(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.reachesSvc, svc.invoiceCalls == 1)
		})
	}
}

func TestInvoices_RequireToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, "/api/v1/invoices", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, method)
	}
}

func TestListInvoices_Defaults(t *testing.T) {
	inv := sampleInvoice()
	svc := &stubService{
		page: &pagination.Page[model.Invoice]{
			Content:       []model.Invoice{inv},
			TotalElements: 45,
			Request:       pagination.PageRequest{Page: 1, Size: 20},
		},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", bearer(t, h, 3))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), svc.gotOwner)
	assert.Equal(t, pagination.PageRequest{Page: 1, Size: 20}, svc.gotReq)
	assert.Nil(t, svc.gotRange.Start)
	assert.Nil(t, svc.gotRange.End)

	var resp struct {
		Data []struct {
			TotalAmount string `json:"totalAmount"`
		} `json:"data"`
		Pagination pagination.Info `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "10440.00", resp.Data[0].TotalAmount)
	assert.Equal(t, pagination.Info{
		Page:        1,
		Limit:       20,
		Total:       45,
		TotalPages:  3,
		HasNext:     true,
		HasPrevious: false,
	}, resp.Pagination)
}

func TestListInvoices_EmptyDataIsArray(t *testing.T) {
	svc := &stubService{
		page: &pagination.Page[model.Invoice]{
			Content: []model.Invoice{},
			Request: pagination.PageRequest{Page: 1, Size: 20},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.ListInvoices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListInvoices_PassesFilterAndPage(t *testing.T) {
	svc := &stubService{
		page: &pagination.Page[model.Invoice]{
			Content: []model.Invoice{},
			Request: pagination.PageRequest{Page: 2, Size: 5},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices?startDate=2026-01-01&endDate=2026-01-31&page=2&size=5", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.ListInvoices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.PageRequest{Page: 2, Size: 5}, svc.gotReq)
	require.NotNil(t, svc.gotRange.Start)
	require.NotNil(t, svc.gotRange.End)
	assert.Equal(t, "2026-01-01", svc.gotRange.Start.Format(time.DateOnly))
	assert.Equal(t, "2026-01-31", svc.gotRange.End.Format(time.DateOnly))
}

func TestListInvoices_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "page zero", query: "page=0"},
		{name: "size too large", query: "size=101"},
		{name: "page not a number", query: "page=two"},
		{name: "blank start date", query: "startDate="},
		{name: "bad end date", query: "endDate=2026-13-01"},
		{name: "start after end", query: "startDate=2026-02-01&endDate=2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestHandler(t, svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices?"+tt.query, nil)
			req = req.WithContext(middleware.WithUserID(req.Context(), 1))
			rec := httptest.NewRecorder()

			h.ListInvoices(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, svc.listCalls)
		})
	}
}

func TestListInvoices_StorageFailure(t *testing.T) {
	svc := &stubService{pageErr: model.NewStorageError("query invoices", errors.New("down"))}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.ListInvoices(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "down")
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	h.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","timestamp":"2026-05-01T12:00:00Z"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invoice_service_")
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestListInvoices_HugePageReturnsEmptyPage(t *testing.T) {
	inv := sampleInvoice()
	repo := repository.NewMemoryRepository()
	_, err := repo.InsertInvoice(context.Background(), model.PendingInvoice{
		OwnerID:        1,
		IssueDate:      inv.IssueDate,
		PaymentAmount:  inv.PaymentAmount,
		FeeRate:        inv.FeeRate,
		Fee:            inv.Fee,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		TotalAmount:    inv.TotalAmount,
		PaymentDueDate: inv.PaymentDueDate,
	})
	require.NoError(t, err)

	h := newTestHandler(t, service.NewService(repo, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices?page=461168601842738792", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.ListInvoices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		Pagination pagination.Info   `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Data)
	assert.Equal(t, int64(1), resp.Pagination.Total)
	assert.True(t, resp.Pagination.HasPrevious)
	assert.False(t, resp.Pagination.HasNext)
}
