package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/service"
)

type invoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type generateInvoiceRequest struct {
	BuyerInfo    model.Party          `json:"buyerInfo"`
	SellerInfo   model.Party          `json:"sellerInfo"`
	CarInfo      model.CarSnapshot    `json:"carInfo"`
	Items        []invoiceItemRequest `json:"items"`
	Subtotal     float64              `json:"subtotal"`
	Tax          float64              `json:"tax"`
	Total        float64              `json:"total"`
	DueDate      string               `json:"dueDate"`
	PaymentTerms string               `json:"paymentTerms,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
}

type invoiceItemResponse struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

type invoiceResponse struct {
	ID            int64                 `json:"id"`
	UID           string                `json:"uid"`
	SaleID        int64                 `json:"saleId"`
	InvoiceNumber string                `json:"invoiceNumber"`
	BuyerInfo     model.Party           `json:"buyerInfo"`
	SellerInfo    model.Party           `json:"sellerInfo"`
	CarInfo       model.CarSnapshot     `json:"carInfo"`
	Items         []invoiceItemResponse `json:"items"`
	Subtotal      float64               `json:"subtotal"`
	Tax           float64               `json:"tax"`
	Total         float64               `json:"total"`
	PaymentTerms  string                `json:"paymentTerms"`
	DueDate       string                `json:"dueDate"`
	Status        string                `json:"status"`
	Notes         *string               `json:"notes,omitempty"`
	CreatedAt     string                `json:"createdAt"`
}

type saleWithInvoiceResponse struct {
	Sale    saleResponse    `json:"sale"`
	Invoice invoiceResponse `json:"invoice"`
}

func toInvoiceResponse(inv *model.Invoice) invoiceResponse {
	items := make([]invoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, invoiceItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   fromCents(item.UnitPriceCents),
			Total:       fromCents(item.TotalCents),
		})
	}

	return invoiceResponse{
		ID:            inv.ID,
		UID:           inv.UID,
		SaleID:        inv.SaleID,
		InvoiceNumber: inv.Number,
		BuyerInfo:     inv.Buyer,
		SellerInfo:    inv.Seller,
		CarInfo:       inv.Car,
		Items:         items,
		Subtotal:      fromCents(inv.SubtotalCents),
		Tax:           fromCents(inv.TaxCents),
		Total:         fromCents(inv.TotalCents),
		PaymentTerms:  inv.PaymentTerms,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		Status:        string(inv.Status),
		Notes:         inv.Notes,
		CreatedAt:     formatTime(inv.CreatedAt),
	}
}

// GenerateInvoice выставляет счёт по сделке.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req generateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		http.Error(w, "invalid due date", http.StatusBadRequest)
		return
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.InvoiceItem{
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: toCents(item.UnitPrice),
		})
	}

	invoice, err := h.service.GenerateInvoice(r.Context(), p, saleID, service.InvoiceInput{
		Buyer:         req.BuyerInfo,
		Seller:        req.SellerInfo,
		Car:           req.CarInfo,
		Items:         items,
		SubtotalCents: toCents(req.Subtotal),
		TaxCents:      toCents(req.Tax),
		TotalCents:    toCents(req.Total),
		DueDate:       dueDate,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeError(w, err, "generate invoice error", zap.Int64("userID", p.UserID), zap.Int64("saleID", saleID))
		return
	}

	h.writeJSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

// GetInvoice возвращает сделку вместе с выставленным по ней счётом.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sale, invoice, err := h.service.GetInvoiceForSale(r.Context(), p, saleID)
	if err != nil {
		h.writeError(w, err, "get invoice error", zap.Int64("userID", p.UserID), zap.Int64("saleID", saleID))
		return
	}

	h.writeJSON(w, http.StatusOK, saleWithInvoiceResponse{
		Sale:    toSaleResponse(sale),
		Invoice: toInvoiceResponse(invoice),
	})
}
