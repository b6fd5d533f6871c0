package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/bizscan-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса bizscan.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/coupon/redeem", h.RedeemCoupon)
		r.Get("/coupon/status", h.CouponStatus)

		r.Post("/payment/order", h.CreateOrder)
		r.Post("/payment/verify", h.VerifyPayment)

		r.Group(func(r chi.Router) {
			r.Use(h.grants.Middleware)

			r.Post("/analyze", h.Analyze)
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
