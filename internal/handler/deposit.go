package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/model"
)

type placeDepositRequest struct {
	ListingID int64   `json:"listingId"`
	Amount    float64 `json:"amount"`
	Notes     *string `json:"notes,omitempty"`
}

type resolveDepositRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type depositResponse struct {
	ID         int64   `json:"id"`
	UID        string  `json:"uid"`
	ListingID  int64   `json:"listingId"`
	BuyerID    int64   `json:"buyerId"`
	Amount     float64 `json:"amount"`
	Notes      *string `json:"notes,omitempty"`
	Status     string  `json:"status"`
	ResolvedBy *int64  `json:"resolvedBy,omitempty"`
	ResolvedAt *string `json:"resolvedAt,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

func toDepositResponse(d *model.Deposit) depositResponse {
	resp := depositResponse{
		ID:         d.ID,
		UID:        d.UID,
		ListingID:  d.ListingID,
		BuyerID:    d.BuyerID,
		Amount:     fromCents(d.AmountCents),
		Notes:      d.Notes,
		Status:     string(d.Status),
		ResolvedBy: d.ResolvedBy,
		CreatedAt:  formatTime(d.CreatedAt),
	}
	if d.ResolvedAt != nil {
		s := formatTime(*d.ResolvedAt)
		resp.ResolvedAt = &s
	}
	return resp
}

// PlaceDeposit создаёт залог текущего пользователя за автомобиль.
func (h *Handler) PlaceDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req placeDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	deposit, err := h.service.PlaceDeposit(r.Context(), p, req.ListingID, toCents(req.Amount), req.Notes)
	if err != nil {
		h.writeError(w, err, "place deposit error", zap.Int64("userID", p.UserID), zap.Int64("listingID", req.ListingID))
		return
	}

	h.writeJSON(w, http.StatusCreated, toDepositResponse(deposit))
}

func (h *Handler) resolveDeposit(w http.ResponseWriter, r *http.Request, resolve func(model.Principal, int64, *string) (*model.Deposit, error), msg string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	depositID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req resolveDepositRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	deposit, err := resolve(p, depositID, req.Notes)
	if err != nil {
		h.writeError(w, err, msg, zap.Int64("userID", p.UserID), zap.Int64("depositID", depositID))
		return
	}

	h.writeJSON(w, http.StatusOK, toDepositResponse(deposit))
}

// ApproveDeposit одобряет залог; автомобиль переводится в статус reserved.
func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	h.resolveDeposit(w, r, func(p model.Principal, id int64, notes *string) (*model.Deposit, error) {
		return h.service.ApproveDeposit(r.Context(), p, id, notes)
	}, "approve deposit error")
}

// RejectDeposit отклоняет залог.
func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	h.resolveDeposit(w, r, func(p model.Principal, id int64, notes *string) (*model.Deposit, error) {
		return h.service.RejectDeposit(r.Context(), p, id, notes)
	}, "reject deposit error")
}

// RefundDeposit возвращает одобренный залог; операция администратора.
func (h *Handler) RefundDeposit(w http.ResponseWriter, r *http.Request) {
	h.resolveDeposit(w, r, func(p model.Principal, id int64, _ *string) (*model.Deposit, error) {
		return h.service.RefundDeposit(r.Context(), p, id)
	}, "refund deposit error")
}

func (h *Handler) listDeposits(w http.ResponseWriter, r *http.Request, list func(model.Principal) ([]model.Deposit, error), msg string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	deposits, err := list(p)
	if err != nil {
		h.writeError(w, err, msg, zap.Int64("userID", p.UserID))
		return
	}

	resp := make([]depositResponse, 0, len(deposits))
	for i := range deposits {
		resp = append(resp, toDepositResponse(&deposits[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetMyDeposits возвращает залоги текущего пользователя.
func (h *Handler) GetMyDeposits(w http.ResponseWriter, r *http.Request) {
	h.listDeposits(w, r, func(p model.Principal) ([]model.Deposit, error) {
		return h.service.DepositsForBuyer(r.Context(), p)
	}, "list buyer deposits error")
}

// GetReceivedDeposits возвращает залоги за автомобили текущего пользователя.
func (h *Handler) GetReceivedDeposits(w http.ResponseWriter, r *http.Request) {
	h.listDeposits(w, r, func(p model.Principal) ([]model.Deposit, error) {
		return h.service.DepositsForOwner(r.Context(), p)
	}, "list owner deposits error")
}

// GetAllDeposits возвращает все залоги; операция администратора.
func (h *Handler) GetAllDeposits(w http.ResponseWriter, r *http.Request) {
	h.listDeposits(w, r, func(p model.Principal) ([]model.Deposit, error) {
		return h.service.AllDeposits(r.Context(), p)
	}, "list all deposits error")
}
