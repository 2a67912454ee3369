package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/automarket-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса автомаркет.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cars", h.ListCars)
		r.Get("/cars/{id}", h.GetCar)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/cars", h.CreateCar)

			r.Post("/deposits", h.PlaceDeposit)
			r.Get("/deposits", h.GetMyDeposits)
			r.Get("/deposits/received", h.GetReceivedDeposits)
			r.Get("/deposits/all", h.GetAllDeposits)
			r.Put("/deposits/{id}/approve", h.ApproveDeposit)
			r.Put("/deposits/{id}/reject", h.RejectDeposit)
			r.Put("/deposits/{id}/refund", h.RefundDeposit)

			r.Post("/sales", h.CreateSale)
			r.Get("/sales", h.GetSales)
			r.Put("/sales/{id}/complete", h.CompleteSale)
			r.Put("/sales/{id}/cancel", h.CancelSale)

			r.Post("/sales/{id}/invoice", h.GenerateInvoice)
			r.Get("/sales/{id}/invoice", h.GetInvoice)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
