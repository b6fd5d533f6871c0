// Package service реализует бизнес-логику сервиса bizscan.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/bizscan-system/internal/analyzer"
	"github.com/mmeshcher/bizscan-system/internal/model"
	"github.com/mmeshcher/bizscan-system/internal/payment"
)

// ErrInvalidCode возвращается при активации кода, не совпадающего с настроенным.
var (
	ErrInvalidCode = errors.New("unknown promo code")
	// ErrInvalidAmount возвращается для неположительной или нечисловой суммы ордера.
	ErrInvalidAmount = errors.New("order amount must be a positive finite number")
)

// Ledger описывает контракт хранилища счётчика промокода, используемый сервисом.
type Ledger interface {
	Close() error
	Redeem(ctx context.Context, code string) (int, error)
	Status(ctx context.Context, code string) (used int, maxUses int, err error)
}

// Service содержит бизнес-логику сервиса bizscan.
type Service struct {
	ledger     Ledger
	payments   *payment.Client
	analyzer   *analyzer.Client
	couponCode string
	keySecret  string
}

// NewService создаёт сервис с указанным ledger и клиентами внешних систем.
func NewService(ledger Ledger, payments *payment.Client, analyzerClient *analyzer.Client, couponCode, keySecret string) *Service {
	return &Service{
		ledger:     ledger,
		payments:   payments,
		analyzer:   analyzerClient,
		couponCode: NormalizeCode(couponCode),
		keySecret:  keySecret,
	}
}

// NormalizeCode приводит промокод к каноническому виду: сравнение кодов
// не зависит от регистра и краевых пробелов.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.ledger != nil {
		return s.ledger.Close()
	}
	return nil
}

// RedeemCoupon активирует промокод и возвращает число активаций после инкремента.
// Несовпадающий код отклоняется до обращения к хранилищу.
func (s *Service) RedeemCoupon(ctx context.Context, code string) (int, error) {
	normalized := NormalizeCode(code)
	if normalized == "" || normalized != s.couponCode {
		return 0, ErrInvalidCode
	}

	return s.ledger.Redeem(ctx, normalized)
}

// CouponStatus возвращает снимок счётчика активаций промокода.
func (s *Service) CouponStatus(ctx context.Context) (*model.CouponStatus, error) {
	used, maxUses, err := s.ledger.Status(ctx, s.couponCode)
	if err != nil {
		return nil, err
	}

	remaining := maxUses - used
	if remaining < 0 {
		remaining = 0
	}

	return &model.CouponStatus{
		UsesSoFar: used,
		Remaining: remaining,
	}, nil
}

// CreateOrder создаёт платёжный ордер на указанную сумму в мажорных единицах.
// Сумма переводится в минорные единицы умножением на 100 с усечением.
func (s *Service) CreateOrder(ctx context.Context, amountMajor float64) (*model.PaymentOrder, error) {
	if amountMajor <= 0 || math.IsNaN(amountMajor) || math.IsInf(amountMajor, 0) {
		return nil, ErrInvalidAmount
	}

	amountMinor := decimal.NewFromFloat(amountMajor).Mul(decimal.NewFromInt(100)).IntPart()
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	receipt := "rcpt_" + uuid.NewString()

	return s.payments.CreateOrder(ctx, amountMinor, receipt)
}

// VerifyPayment проверяет подпись завершённого платежа. Проверка чистая:
// пересчёт HMAC на серверном ключе, никакого состояния и внешних вызовов.
func (s *Service) VerifyPayment(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return payment.VerifySignature(s.keySecret, orderID, paymentID, signature)
}

// Analyze передаёт валидированный запрос внешнему анализатору и возвращает
// его ответ без изменений.
func (s *Service) Analyze(ctx context.Context, req *model.AnalysisRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	return s.analyzer.Analyze(ctx, payload)
}
