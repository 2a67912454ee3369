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

type createCarRequest struct {
	Brand        string   `json:"brand"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	Price        float64  `json:"price"`
	Mileage      int      `json:"mileage"`
	FuelType     string   `json:"fuelType"`
	Transmission string   `json:"transmission"`
	Images       []string `json:"images"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	Location     *string  `json:"location,omitempty"`
	VIN          *string  `json:"vin,omitempty"`
}

type carResponse struct {
	ID           int64    `json:"id"`
	UID          string   `json:"uid"`
	OwnerID      int64    `json:"ownerId"`
	Brand        string   `json:"brand"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	Price        float64  `json:"price"`
	Mileage      int      `json:"mileage"`
	FuelType     string   `json:"fuelType"`
	Transmission string   `json:"transmission"`
	Images       []string `json:"images"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	Location     *string  `json:"location,omitempty"`
	VIN          *string  `json:"vin,omitempty"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func toCarResponse(c *model.Car) carResponse {
	return carResponse{
		ID:           c.ID,
		UID:          c.UID,
		OwnerID:      c.OwnerID,
		Brand:        c.Brand,
		Model:        c.Model,
		Year:         c.Year,
		Price:        fromCents(c.PriceCents),
		Mileage:      c.Mileage,
		FuelType:     c.FuelType,
		Transmission: c.Transmission,
		Images:       c.Images,
		Description:  c.Description,
		Features:     c.Features,
		Location:     c.Location,
		VIN:          c.VIN,
		Status:       string(c.Status),
		CreatedAt:    formatTime(c.CreatedAt),
		UpdatedAt:    formatTime(c.UpdatedAt),
	}
}

// CreateCar создаёт новое объявление о продаже автомобиля.
func (h *Handler) CreateCar(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	car, err := h.service.CreateCar(r.Context(), p, service.CreateCarInput{
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		PriceCents:   toCents(req.Price),
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Images:       req.Images,
		Description:  req.Description,
		Features:     req.Features,
		Location:     req.Location,
		VIN:          req.VIN,
	})
	if err != nil {
		h.writeError(w, err, "create car error", zap.Int64("userID", p.UserID))
		return
	}

	h.writeJSON(w, http.StatusCreated, toCarResponse(car))
}

// GetCar возвращает объявление по идентификатору.
func (h *Handler) GetCar(w http.ResponseWriter, r *http.Request) {
	carID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	car, err := h.service.GetCar(r.Context(), carID)
	if err != nil {
		h.writeError(w, err, "get car error", zap.Int64("carID", carID))
		return
	}

	h.writeJSON(w, http.StatusOK, toCarResponse(car))
}

// ListCars возвращает объявления в статусе available.
func (h *Handler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.ListAvailableCars(r.Context())
	if err != nil {
		h.writeError(w, err, "list cars error")
		return
	}

	resp := make([]carResponse, 0, len(cars))
	for i := range cars {
		resp = append(resp, toCarResponse(&cars[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}
