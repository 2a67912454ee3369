// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrCarNotFound возвращается, если объявление не найдено.
var (
	ErrCarNotFound = errors.New("car not found")
	// ErrCarUnavailable возвращается при попытке оставить залог за автомобиль не в статусе available.
	ErrCarUnavailable = errors.New("car is not available")
	// ErrStatusConflict возвращается, когда условное обновление статуса автомобиля
	// проиграло гонку: предусловие было верно при чтении, но нарушено к моменту записи.
	ErrStatusConflict = errors.New("car status changed concurrently")
	// ErrDepositExists возвращается при попытке создать второй залог той же пары (объявление, покупатель).
	ErrDepositExists = errors.New("deposit already exists for this listing and buyer")
	// ErrDepositNotFound возвращается, если залог не найден.
	ErrDepositNotFound = errors.New("deposit not found")
	// ErrDepositNotPending возвращается при попытке разрешить залог не в статусе pending.
	ErrDepositNotPending = errors.New("deposit is not pending")
	// ErrDepositNotApproved возвращается при попытке вернуть залог не в статусе approved.
	ErrDepositNotApproved = errors.New("deposit is not approved")
	// ErrSaleNotFound возвращается, если сделка не найдена.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrSaleNotPending возвращается при попытке завершить или отменить сделку не в статусе pending.
	ErrSaleNotPending = errors.New("sale is not pending")
	// ErrInvoiceExists возвращается, если по сделке уже выставлен счёт.
	ErrInvoiceExists = errors.New("invoice already exists for this sale")
	// ErrInvoiceNotFound возвращается, если счёт не найден.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrInvoiceNumberTaken возвращается при коллизии номера счёта; операция подлежит повтору.
	ErrInvoiceNumberTaken = errors.New("invoice number already taken")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
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

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
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

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
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

		// Ретраи полезны для Serialization Failure и Deadlock
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		// Если это не pg-ошибка, но сетевая
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

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
