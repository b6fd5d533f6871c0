package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/bizscan-system/internal/payment"
	"github.com/mmeshcher/bizscan-system/internal/repository"
)

type stubLedger struct {
	redeemCalls int
	redeemUsed  int
	redeemErr   error

	statusUsed int
	statusMax  int
	statusErr  error
}

func (s *stubLedger) Close() error { return nil }

func (s *stubLedger) Redeem(ctx context.Context, code string) (int, error) {
	s.redeemCalls++
	return s.redeemUsed, s.redeemErr
}

func (s *stubLedger) Status(ctx context.Context, code string) (int, int, error) {
	return s.statusUsed, s.statusMax, s.statusErr
}

func TestRedeemCouponCaseInsensitive(t *testing.T) {
	for _, code := range []string{"growth85", "GROWTH85", "Growth85", "  growth85  "} {
		ledger := &stubLedger{redeemUsed: 1}
		svc := NewService(ledger, nil, nil, "growth85", "secret")

		used, err := svc.RedeemCoupon(context.Background(), code)
		if err != nil {
			t.Fatalf("RedeemCoupon(%q) error: %v", code, err)
		}
		if used != 1 {
			t.Fatalf("RedeemCoupon(%q) used = %d, want 1", code, used)
		}
		if ledger.redeemCalls != 1 {
			t.Fatalf("RedeemCoupon(%q) ledger calls = %d, want 1", code, ledger.redeemCalls)
		}
	}
}

func TestRedeemCouponInvalidCodeSkipsLedger(t *testing.T) {
	ledger := &stubLedger{}
	svc := NewService(ledger, nil, nil, "GROWTH85", "secret")

	for _, code := range []string{"", "WRONG", "GROWTH8"} {
		_, err := svc.RedeemCoupon(context.Background(), code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("RedeemCoupon(%q) error = %v, want ErrInvalidCode", code, err)
		}
	}

	if ledger.redeemCalls != 0 {
		t.Fatalf("ledger touched %d times for invalid codes", ledger.redeemCalls)
	}
}

func TestRedeemCouponLimitReached(t *testing.T) {
	ledger := &stubLedger{redeemUsed: 20, redeemErr: repository.ErrLimitReached}
	svc := NewService(ledger, nil, nil, "GROWTH85", "secret")

	_, err := svc.RedeemCoupon(context.Background(), "GROWTH85")
	if !errors.Is(err, repository.ErrLimitReached) {
		t.Fatalf("error = %v, want ErrLimitReached", err)
	}
}

func TestCouponStatusRemainingNeverNegative(t *testing.T) {
	ledger := &stubLedger{statusUsed: 25, statusMax: 20}
	svc := NewService(ledger, nil, nil, "GROWTH85", "secret")

	status, err := svc.CouponStatus(context.Background())
	if err != nil {
		t.Fatalf("CouponStatus error: %v", err)
	}
	if status.UsesSoFar != 25 {
		t.Fatalf("usesSoFar = %d, want 25", status.UsesSoFar)
	}
	if status.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", status.Remaining)
	}
}

func TestCreateOrderRejectsInvalidAmounts(t *testing.T) {
	// Платёжный клиент не настроен: невалидная сумма должна отклоняться
	// до любого сетевого вызова.
	svc := NewService(&stubLedger{}, nil, nil, "GROWTH85", "secret")

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.CreateOrder(context.Background(), amount)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("CreateOrder(%v) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestCreateOrderConvertsToMinorUnits(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{amount: 5, want: 500},
		{amount: 19.99, want: 1999},
		{amount: 0.019, want: 1},
	}

	for _, tt := range tests {
		var gotMinor int64
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Amount  int64  `json:"amount"`
				Receipt string `json:"receipt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotMinor = req.Amount

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":       "order_1",
				"amount":   req.Amount,
				"currency": payment.Currency,
				"receipt":  req.Receipt,
			})
		}))

		client := payment.NewClient(ts.URL, "key", "secret")
		svc := NewService(&stubLedger{}, client, nil, "GROWTH85", "secret")

		order, err := svc.CreateOrder(context.Background(), tt.amount)
		ts.Close()
		if err != nil {
			t.Fatalf("CreateOrder(%v) error: %v", tt.amount, err)
		}
		if gotMinor != tt.want {
			t.Fatalf("CreateOrder(%v) sent amount %d, want %d", tt.amount, gotMinor, tt.want)
		}
		if order.Receipt == "" {
			t.Fatalf("CreateOrder(%v) order has empty receipt", tt.amount)
		}
	}
}

func TestVerifyPayment(t *testing.T) {
	svc := NewService(&stubLedger{}, nil, nil, "GROWTH85", "key_secret")

	signature := payment.Sign("key_secret", "order_1", "pay_1")

	if !svc.VerifyPayment("order_1", "pay_1", signature) {
		t.Fatalf("valid payment rejected")
	}
	if svc.VerifyPayment("order_1", "pay_2", signature) {
		t.Fatalf("signature accepted for different payment")
	}
	if svc.VerifyPayment("", "", "") {
		t.Fatalf("empty identifiers accepted")
	}
}
