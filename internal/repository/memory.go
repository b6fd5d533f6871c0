// Package repository содержит реализации хранилища счётчика промокода.
package repository

import (
	"context"
	"errors"
	"sync"
)

// ErrLimitReached возвращается при попытке активации промокода сверх лимита.
var (
	ErrLimitReached = errors.New("promo code redemption limit reached")
	// ErrStorageUnavailable возвращается при недоступности хранилища счётчика.
	ErrStorageUnavailable = errors.New("coupon storage unavailable")
)

// MemoryLedger хранит счётчики активаций промокодов в памяти процесса.
// Счётчик живёт до перезапуска сервиса.
type MemoryLedger struct {
	mu       sync.Mutex
	maxUses  int
	redeemed map[string]int
}

// NewMemoryLedger создаёт ledger в памяти с указанным лимитом активаций.
func NewMemoryLedger(maxUses int) *MemoryLedger {
	return &MemoryLedger{
		maxUses:  maxUses,
		redeemed: make(map[string]int),
	}
}

// Redeem атомарно увеличивает счётчик активаций кода и возвращает новое значение.
// Проверка лимита и инкремент выполняются под одной блокировкой.
func (l *MemoryLedger) Redeem(_ context.Context, code string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := l.redeemed[code]
	if used >= l.maxUses {
		return used, ErrLimitReached
	}

	l.redeemed[code] = used + 1
	return used + 1, nil
}

// Status возвращает текущее число активаций кода и лимит.
func (l *MemoryLedger) Status(_ context.Context, code string) (int, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.redeemed[code], l.maxUses, nil
}

// Close освобождает ресурсы хранилища.
func (l *MemoryLedger) Close() error {
	return nil
}
