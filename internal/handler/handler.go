// Package handler содержит HTTP-обработчики API сервиса автомаркет.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/middleware"
	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/repository"
	"github.com/mmeshcher/automarket-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateCar(ctx context.Context, p model.Principal, in service.CreateCarInput) (*model.Car, error)
	GetCar(ctx context.Context, carID int64) (*model.Car, error)
	ListAvailableCars(ctx context.Context) ([]model.Car, error)

	PlaceDeposit(ctx context.Context, p model.Principal, listingID, amountCents int64, notes *string) (*model.Deposit, error)
	ApproveDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error)
	RejectDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error)
	RefundDeposit(ctx context.Context, p model.Principal, depositID int64) (*model.Deposit, error)
	DepositsForBuyer(ctx context.Context, p model.Principal) ([]model.Deposit, error)
	DepositsForOwner(ctx context.Context, p model.Principal) ([]model.Deposit, error)
	AllDeposits(ctx context.Context, p model.Principal) ([]model.Deposit, error)

	CreateSale(ctx context.Context, p model.Principal, in service.CreateSaleInput) (*model.Sale, error)
	CompleteSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error)
	CancelSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error)
	SalesFor(ctx context.Context, p model.Principal) ([]model.Sale, error)

	GenerateInvoice(ctx context.Context, p model.Principal, saleID int64, in service.InvoiceInput) (*model.Invoice, error)
	GetInvoiceForSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, *model.Invoice, error)
}

// Handler реализует HTTP-обработчики API сервиса автомаркет.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeError отдаёт ошибку бизнес-логики соответствующим HTTP-статусом.
// Конфликты (409) отделены от нарушений предусловий (400): по 409 клиент может
// перечитать текущее состояние и повторить запрос.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, repository.ErrCarNotFound),
		errors.Is(err, repository.ErrDepositNotFound),
		errors.Is(err, repository.ErrSaleNotFound),
		errors.Is(err, repository.ErrInvoiceNotFound),
		errors.Is(err, service.ErrBuyerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, repository.ErrDepositNotPending),
		errors.Is(err, repository.ErrDepositNotApproved),
		errors.Is(err, repository.ErrSaleNotPending),
		errors.Is(err, repository.ErrInvoiceExists):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrCarUnavailable),
		errors.Is(err, repository.ErrDepositExists),
		errors.Is(err, repository.ErrStatusConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func principal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return p, ok
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

func optCents(amount *float64) *int64 {
	if amount == nil {
		return nil
	}
	v := toCents(*amount)
	return &v
}

func optFromCents(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := fromCents(*cents)
	return &v
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
