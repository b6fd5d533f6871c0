// Package handler содержит HTTP-обработчики API сервиса bizscan.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/bizscan-system/internal/analyzer"
	"github.com/mmeshcher/bizscan-system/internal/middleware"
	"github.com/mmeshcher/bizscan-system/internal/model"
	"github.com/mmeshcher/bizscan-system/internal/payment"
	"github.com/mmeshcher/bizscan-system/internal/repository"
	"github.com/mmeshcher/bizscan-system/internal/service"
	"github.com/mmeshcher/bizscan-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RedeemCoupon(ctx context.Context, code string) (int, error)
	CouponStatus(ctx context.Context) (*model.CouponStatus, error)
	CreateOrder(ctx context.Context, amountMajor float64) (*model.PaymentOrder, error)
	VerifyPayment(orderID, paymentID, signature string) bool
	Analyze(ctx context.Context, req *model.AnalysisRequest) (json.RawMessage, error)
}

// Handler реализует HTTP-обработчики API сервиса bizscan.
type Handler struct {
	service Service
	logger  *zap.Logger
	grants  *middleware.GrantMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, grants *middleware.GrantMiddleware) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		grants:  grants,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Accepted  bool   `json:"accepted"`
	UsesSoFar int    `json:"usesSoFar,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RedeemCoupon активирует промокод. Успешная активация выдаёт грант доступа.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	used, err := h.service.RedeemCoupon(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			writeJSON(w, http.StatusBadRequest, redeemResponse{Accepted: false, Reason: "InvalidCode"})
		case errors.Is(err, repository.ErrLimitReached):
			writeJSON(w, http.StatusBadRequest, redeemResponse{Accepted: false, Reason: "LimitReached"})
		default:
			h.logger.Error("redeem coupon error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
		return
	}

	h.grants.IssueGrant(w, middleware.GrantSourceCoupon)
	writeJSON(w, http.StatusOK, redeemResponse{Accepted: true, UsesSoFar: used})
}

// CouponStatus возвращает текущее число активаций промокода и остаток.
func (h *Handler) CouponStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CouponStatus(r.Context())
	if err != nil {
		h.logger.Error("coupon status error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type createOrderRequest struct {
	Amount float64 `json:"amount"`
}

// CreateOrder создаёт платёжный ордер во внешней платёжной системе.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a positive number"})
			return
		}

		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			h.logger.Error("payment system rejected order",
				zap.Int("upstreamStatus", apiErr.Status), zap.String("message", apiErr.Message))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: apiErr.Message})
			return
		}

		h.logger.Error("create order error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create payment order"})
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type verifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// VerifyPayment проверяет подпись завершённого платежа.
// Подтверждённый платёж выдаёт грант доступа.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Verified: false})
		return
	}

	if !h.service.VerifyPayment(req.OrderID, req.PaymentID, req.Signature) {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Verified: false})
		return
	}

	h.grants.IssueGrant(w, middleware.GrantSourcePayment)
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true})
}

// Analyze валидирует запрос анализа и передаёт его внешнему анализатору.
// Ответ анализатора возвращается без изменений, его отказ — с его статусом.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidAnalysisRequest(&req) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "subject profile and at least one competitor are required"})
		return
	}

	result, err := h.service.Analyze(r.Context(), &req)
	if err != nil {
		if errors.Is(err, analyzer.ErrNotConfigured) {
			h.logger.Error("analyzer not configured")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analyzer not configured"})
			return
		}

		var upstreamErr *analyzer.UpstreamError
		if errors.As(err, &upstreamErr) {
			h.logger.Error("analyzer rejected request",
				zap.Int("upstreamStatus", upstreamErr.Status), zap.String("message", upstreamErr.Message))
			writeJSON(w, upstreamErr.Status, errorResponse{Error: upstreamErr.Message})
			return
		}

		h.logger.Error("analyze error", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "analyzer unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(result)
}
