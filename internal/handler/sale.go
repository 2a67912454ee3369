package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/service"
)

type createSaleRequest struct {
	CarID          int64    `json:"carId"`
	BuyerID        int64    `json:"buyerId"`
	SaleType       string   `json:"saleType"`
	TotalAmount    float64  `json:"totalAmount"`
	DownPayment    *float64 `json:"downPayment,omitempty"`
	MonthlyPayment *float64 `json:"monthlyPayment,omitempty"`
	LeaseTerm      *int     `json:"leaseTerm,omitempty"`
	InterestRate   *float64 `json:"interestRate,omitempty"`
}

type saleResponse struct {
	ID             int64    `json:"id"`
	UID            string   `json:"uid"`
	CarID          int64    `json:"carId"`
	BuyerID        int64    `json:"buyerId"`
	SellerID       int64    `json:"sellerId"`
	SaleType       string   `json:"saleType"`
	TotalAmount    float64  `json:"totalAmount"`
	DownPayment    *float64 `json:"downPayment,omitempty"`
	MonthlyPayment *float64 `json:"monthlyPayment,omitempty"`
	LeaseTerm      *int     `json:"leaseTerm,omitempty"`
	InterestRate   *float64 `json:"interestRate,omitempty"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

func toSaleResponse(s *model.Sale) saleResponse {
	return saleResponse{
		ID:             s.ID,
		UID:            s.UID,
		CarID:          s.CarID,
		BuyerID:        s.BuyerID,
		SellerID:       s.SellerID,
		SaleType:       string(s.Type),
		TotalAmount:    fromCents(s.TotalCents),
		DownPayment:    optFromCents(s.DownPaymentCents),
		MonthlyPayment: optFromCents(s.MonthlyPaymentCents),
		LeaseTerm:      s.LeaseTermMonths,
		InterestRate:   s.InterestRate,
		Status:         string(s.Status),
		CreatedAt:      formatTime(s.CreatedAt),
		UpdatedAt:      formatTime(s.UpdatedAt),
	}
}

// CreateSale создаёт сделку купли-продажи; автомобиль переводится в статус sold.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sale, err := h.service.CreateSale(r.Context(), p, service.CreateSaleInput{
		CarID:               req.CarID,
		BuyerID:             req.BuyerID,
		Type:                model.SaleType(req.SaleType),
		TotalCents:          toCents(req.TotalAmount),
		DownPaymentCents:    optCents(req.DownPayment),
		MonthlyPaymentCents: optCents(req.MonthlyPayment),
		LeaseTermMonths:     req.LeaseTerm,
		InterestRate:        req.InterestRate,
	})
	if err != nil {
		h.writeError(w, err, "create sale error", zap.Int64("userID", p.UserID), zap.Int64("carID", req.CarID))
		return
	}

	h.writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

// GetSales возвращает сделки текущего продавца; администратор видит все сделки.
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	sales, err := h.service.SalesFor(r.Context(), p)
	if err != nil {
		h.writeError(w, err, "list sales error", zap.Int64("userID", p.UserID))
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for i := range sales {
		resp = append(resp, toSaleResponse(&sales[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) transitionSale(w http.ResponseWriter, r *http.Request, transition func(model.Principal, int64) (*model.Sale, error), msg string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sale, err := transition(p, saleID)
	if err != nil {
		h.writeError(w, err, msg, zap.Int64("userID", p.UserID), zap.Int64("saleID", saleID))
		return
	}

	h.writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// CompleteSale переводит сделку в статус completed.
func (h *Handler) CompleteSale(w http.ResponseWriter, r *http.Request) {
	h.transitionSale(w, r, func(p model.Principal, id int64) (*model.Sale, error) {
		return h.service.CompleteSale(r.Context(), p, id)
	}, "complete sale error")
}

// CancelSale переводит сделку в статус cancelled.
func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	h.transitionSale(w, r, func(p model.Principal, id int64) (*model.Sale, error) {
		return h.service.CancelSale(r.Context(), p, id)
	}, "cancel sale error")
}
