package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/middleware"
	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/repository"
	"github.com/mmeshcher/automarket-system/internal/service"
)

type stubService struct {
	car     *model.Car
	cars    []model.Car
	carErr  error
	carsErr error

	deposit     *model.Deposit
	depositErr  error
	deposits    []model.Deposit
	depositsErr error

	sale     *model.Sale
	saleErr  error
	sales    []model.Sale
	salesErr error

	invoice    *model.Invoice
	invoiceErr error
}

func (s *stubService) CreateCar(ctx context.Context, p model.Principal, in service.CreateCarInput) (*model.Car, error) {
	return s.car, s.carErr
}

func (s *stubService) GetCar(ctx context.Context, carID int64) (*model.Car, error) {
	return s.car, s.carErr
}

func (s *stubService) ListAvailableCars(ctx context.Context) ([]model.Car, error) {
	return s.cars, s.carsErr
}

func (s *stubService) PlaceDeposit(ctx context.Context, p model.Principal, listingID, amountCents int64, notes *string) (*model.Deposit, error) {
	return s.deposit, s.depositErr
}

func (s *stubService) ApproveDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error) {
	return s.deposit, s.depositErr
}

func (s *stubService) RejectDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error) {
	return s.deposit, s.depositErr
}

func (s *stubService) RefundDeposit(ctx context.Context, p model.Principal, depositID int64) (*model.Deposit, error) {
	return s.deposit, s.depositErr
}

func (s *stubService) DepositsForBuyer(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	return s.deposits, s.depositsErr
}

func (s *stubService) DepositsForOwner(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	return s.deposits, s.depositsErr
}

func (s *stubService) AllDeposits(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	return s.deposits, s.depositsErr
}

func (s *stubService) CreateSale(ctx context.Context, p model.Principal, in service.CreateSaleInput) (*model.Sale, error) {
	return s.sale, s.saleErr
}

func (s *stubService) CompleteSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error) {
	return s.sale, s.saleErr
}

func (s *stubService) CancelSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error) {
	return s.sale, s.saleErr
}

func (s *stubService) SalesFor(ctx context.Context, p model.Principal) ([]model.Sale, error) {
	return s.sales, s.salesErr
}

func (s *stubService) GenerateInvoice(ctx context.Context, p model.Principal, saleID int64, in service.InvoiceInput) (*model.Invoice, error) {
	return s.invoice, s.invoiceErr
}

func (s *stubService) GetInvoiceForSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, *model.Invoice, error) {
	if s.invoiceErr != nil {
		return nil, nil, s.invoiceErr
	}
	return s.sale, s.invoice, nil
}

const testSecret = "test-secret"

func newTestRouter(t *testing.T, svc Service) (http.Handler, *middleware.AuthMiddleware) {
	t.Helper()
	auth := middleware.NewAuthMiddleware(testSecret)
	h := NewHandler(svc, zap.NewNop(), auth)
	return h.SetupRouter(), auth
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sellerToken(t *testing.T, auth *middleware.AuthMiddleware) string {
	t.Helper()
	token, err := auth.IssueToken(20, model.RoleSeller)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func testCar() *model.Car {
	return &model.Car{
		ID:         1,
		UID:        "c0ffee00-0000-0000-0000-000000000001",
		OwnerID:    20,
		Brand:      "Toyota",
		Model:      "Corolla",
		Year:       2020,
		PriceCents: 2000000,
		Status:     model.CarStatusAvailable,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateCar(t *testing.T) {
	body := `{"brand":"Toyota","model":"Corolla","year":2020,"price":20000}`

	tests := []struct {
		name       string
		svc        *stubService
		token      bool
		body       string
		wantStatus int
	}{
		{
			name:       "created",
			svc:        &stubService{car: testCar()},
			token:      true,
			body:       body,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unauthorized without token",
			svc:        &stubService{},
			token:      false,
			body:       body,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forbidden",
			svc:        &stubService{carErr: service.ErrForbidden},
			token:      true,
			body:       body,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "validation error",
			svc:        &stubService{carErr: service.ErrValidation},
			token:      true,
			body:       body,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			svc:        &stubService{},
			token:      true,
			body:       `{"brand":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, auth := newTestRouter(t, tt.svc)

			var token string
			if tt.token {
				token = sellerToken(t, auth)
			}

			rec := doRequest(t, router, http.MethodPost, "/api/cars", token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestGetCar(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubService{car: testCar()})

		rec := doRequest(t, router, http.MethodGet, "/api/cars/1", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %q", ct)
		}

		var resp carResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != 1 || resp.Price != 20000 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("not found", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubService{carErr: repository.ErrCarNotFound})

		rec := doRequest(t, router, http.MethodGet, "/api/cars/1", "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubService{})

		rec := doRequest(t, router, http.MethodGet, "/api/cars/abc", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPlaceDeposit(t *testing.T) {
	body := `{"listingId":1,"amount":500}`
	deposit := &model.Deposit{
		ID:          7,
		UID:         "c0ffee00-0000-0000-0000-000000000007",
		ListingID:   1,
		BuyerID:     10,
		AmountCents: 50000,
		Status:      model.DepositStatusPending,
		CreatedAt:   time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "created",
			svc:        &stubService{deposit: deposit},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate deposit",
			svc:        &stubService{depositErr: repository.ErrDepositExists},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "car unavailable",
			svc:        &stubService{depositErr: repository.ErrCarUnavailable},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "car not found",
			svc:        &stubService{depositErr: repository.ErrCarNotFound},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, auth := newTestRouter(t, tt.svc)
			token := sellerToken(t, auth)

			rec := doRequest(t, router, http.MethodPost, "/api/deposits", token, body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestApproveDeposit(t *testing.T) {
	approved := &model.Deposit{
		ID:          7,
		ListingID:   1,
		BuyerID:     10,
		AmountCents: 50000,
		Status:      model.DepositStatusApproved,
		CreatedAt:   time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "approved",
			svc:        &stubService{deposit: approved},
			wantStatus: http.StatusOK,
		},
		{
			name:       "lost race",
			svc:        &stubService{depositErr: repository.ErrStatusConflict},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "already resolved",
			svc:        &stubService{depositErr: repository.ErrDepositNotPending},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "forbidden",
			svc:        &stubService{depositErr: service.ErrForbidden},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, auth := newTestRouter(t, tt.svc)
			token := sellerToken(t, auth)

			rec := doRequest(t, router, http.MethodPut, "/api/deposits/7/approve", token, `{}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCreateSale(t *testing.T) {
	body := `{"carId":1,"buyerId":10,"saleType":"full","totalAmount":20000}`
	sale := &model.Sale{
		ID:         3,
		UID:        "c0ffee00-0000-0000-0000-000000000003",
		CarID:      1,
		BuyerID:    10,
		SellerID:   20,
		Type:       model.SaleTypeFull,
		TotalCents: 2000000,
		Status:     model.SaleStatusPending,
		CreatedAt:  time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "created",
			svc:        &stubService{sale: sale},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "car already sold",
			svc:        &stubService{saleErr: repository.ErrStatusConflict},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "buyer not found",
			svc:        &stubService{saleErr: service.ErrBuyerNotFound},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "validation error",
			svc:        &stubService{saleErr: service.ErrValidation},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, auth := newTestRouter(t, tt.svc)
			token := sellerToken(t, auth)

			rec := doRequest(t, router, http.MethodPost, "/api/sales", token, body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCompleteSale(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		completed := &model.Sale{
			ID:         3,
			CarID:      1,
			BuyerID:    10,
			SellerID:   20,
			Type:       model.SaleTypeFull,
			TotalCents: 2000000,
			Status:     model.SaleStatusCompleted,
			CreatedAt:  time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
		}
		router, auth := newTestRouter(t, &stubService{sale: completed})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodPut, "/api/sales/3/complete", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %q", rec.Code, rec.Body.String())
		}

		var resp saleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != string(model.SaleStatusCompleted) {
			t.Fatalf("status = %q, want completed", resp.Status)
		}
	})

	t.Run("not pending", func(t *testing.T) {
		router, auth := newTestRouter(t, &stubService{saleErr: repository.ErrSaleNotPending})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodPut, "/api/sales/3/cancel", token, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGenerateInvoice(t *testing.T) {
	body := `{
		"buyerInfo":{"name":"Buyer","email":"buyer@example.com"},
		"sellerInfo":{"name":"Seller","email":"seller@example.com"},
		"carInfo":{"brand":"Toyota","model":"Corolla","year":2020},
		"items":[{"description":"Vehicle purchase","quantity":1,"unitPrice":20000}],
		"subtotal":20000,"tax":2000,"total":22000,
		"dueDate":"2026-09-30"
	}`
	invoice := &model.Invoice{
		ID:            1,
		UID:           "c0ffee00-0000-0000-0000-00000000000a",
		SaleID:        3,
		Number:        "INV-2026-0001",
		Buyer:         model.Party{Name: "Buyer", Email: "buyer@example.com"},
		Seller:        model.Party{Name: "Seller", Email: "seller@example.com"},
		Car:           model.CarSnapshot{Brand: "Toyota", Model: "Corolla", Year: 2020},
		Items:         []model.InvoiceItem{{Description: "Vehicle purchase", Quantity: 1, UnitPriceCents: 2000000, TotalCents: 2000000}},
		SubtotalCents: 2000000,
		TaxCents:      200000,
		TotalCents:    2200000,
		PaymentTerms:  "Due within 30 days",
		DueDate:       time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		Status:        model.InvoiceStatusSent,
		CreatedAt:     time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC),
	}

	t.Run("created", func(t *testing.T) {
		router, auth := newTestRouter(t, &stubService{invoice: invoice})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodPost, "/api/sales/3/invoice", token, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %q", rec.Code, rec.Body.String())
		}

		var resp invoiceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.InvoiceNumber != "INV-2026-0001" {
			t.Fatalf("invoiceNumber = %q, want INV-2026-0001", resp.InvoiceNumber)
		}
		if resp.Total != 22000 {
			t.Fatalf("total = %v, want 22000", resp.Total)
		}
	})

	t.Run("duplicate invoice", func(t *testing.T) {
		router, auth := newTestRouter(t, &stubService{invoiceErr: repository.ErrInvoiceExists})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodPost, "/api/sales/3/invoice", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid due date", func(t *testing.T) {
		router, auth := newTestRouter(t, &stubService{})
		token := sellerToken(t, auth)

		bad := strings.Replace(body, "2026-09-30", "30.09.2026", 1)
		rec := doRequest(t, router, http.MethodPost, "/api/sales/3/invoice", token, bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invoice fetch", func(t *testing.T) {
		sale := &model.Sale{
			ID:         3,
			CarID:      1,
			BuyerID:    10,
			SellerID:   20,
			Type:       model.SaleTypeFull,
			TotalCents: 2200000,
			Status:     model.SaleStatusPending,
			CreatedAt:  time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC),
		}
		router, auth := newTestRouter(t, &stubService{sale: sale, invoice: invoice})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodGet, "/api/sales/3/invoice", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %q", rec.Code, rec.Body.String())
		}

		var resp saleWithInvoiceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Sale.ID != 3 || resp.Invoice.InvoiceNumber != "INV-2026-0001" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("no invoice yet", func(t *testing.T) {
		router, auth := newTestRouter(t, &stubService{invoiceErr: repository.ErrInvoiceNotFound})
		token := sellerToken(t, auth)

		rec := doRequest(t, router, http.MethodGet, "/api/sales/3/invoice", token, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})

	rec := doRequest(t, router, http.MethodGet, "/api/unknown", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
