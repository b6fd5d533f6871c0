package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresLedger хранит счётчик активаций промокода в PostgreSQL.
// В отличие от MemoryLedger счётчик переживает перезапуск сервиса.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger создаёт ledger поверх PostgreSQL, применяет миграции
// и заводит строку для указанного промокода, если её ещё нет.
func NewPostgresLedger(dsn, code string, maxUses int) (*PostgresLedger, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &PostgresLedger{pool: pool}

	if err := l.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := l.ensureCoupon(ctx, code, maxUses); err != nil {
		pool.Close()
		return nil, err
	}

	return l, nil
}

func (l *PostgresLedger) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(l.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (l *PostgresLedger) ensureCoupon(ctx context.Context, code string, maxUses int) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO coupons (code, redeemed_count, max_uses) VALUES ($1, 0, $2)
		 ON CONFLICT (code) DO NOTHING`,
		code, maxUses,
	)
	if err != nil {
		return fmt.Errorf("ensure coupon: %w", err)
	}
	return nil
}

func (l *PostgresLedger) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Ретраи полезны для Serialization Failure или Deadlocks.
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}

// Redeem атомарно увеличивает счётчик активаций кода, если лимит не исчерпан.
// Условный UPDATE исключает гонку проверки и инкремента: два конкурентных
// вызова не могут оба пройти проверку и вывести счётчик за лимит.
func (l *PostgresLedger) Redeem(ctx context.Context, code string) (int, error) {
	var count int
	err := l.withRetry(ctx, func() error {
		return l.pool.QueryRow(ctx,
			`UPDATE coupons
			 SET redeemed_count = redeemed_count + 1
			 WHERE code = $1 AND redeemed_count < max_uses
			 RETURNING redeemed_count`,
			code,
		).Scan(&count)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			used, _, statusErr := l.Status(ctx, code)
			if statusErr != nil {
				return 0, statusErr
			}
			return used, ErrLimitReached
		}
		return 0, fmt.Errorf("%w: redeem coupon: %w", ErrStorageUnavailable, err)
	}

	return count, nil
}

// Status возвращает текущее число активаций кода и лимит.
func (l *PostgresLedger) Status(ctx context.Context, code string) (int, int, error) {
	var used, maxUses int
	err := l.withRetry(ctx, func() error {
		return l.pool.QueryRow(ctx,
			`SELECT redeemed_count, max_uses FROM coupons WHERE code = $1`,
			code,
		).Scan(&used, &maxUses)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, fmt.Errorf("%w: coupon %q not provisioned", ErrStorageUnavailable, code)
		}
		return 0, 0, fmt.Errorf("%w: coupon status: %w", ErrStorageUnavailable, err)
	}

	return used, maxUses, nil
}
