package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/automarket-system/internal/model"
)

const depositColumns = `id, uid, listing_id, buyer_id, amount, notes, status, resolved_by, resolved_at, created_at`

func scanDeposit(row carRow) (*model.Deposit, error) {
	var d model.Deposit
	err := row.Scan(
		&d.ID, &d.UID, &d.ListingID, &d.BuyerID, &d.AmountCents, &d.Notes,
		&d.Status, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeposit создаёт залог за автомобиль в статусе available.
// Строка объявления блокируется на время транзакции, чтобы статус не изменился
// между проверкой и вставкой. Дубликат пары (объявление, покупатель)
// отклоняется ограничением уникальности.
func (r *PostgresRepository) CreateDeposit(ctx context.Context, deposit *model.Deposit) (*model.Deposit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM cars WHERE id = $1 FOR UPDATE`, deposit.ListingID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("lock car: %w", err)
	}

	if model.CarStatus(status) != model.CarStatusAvailable {
		return nil, ErrCarUnavailable
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO deposits (uid, listing_id, buyer_id, amount, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+depositColumns,
		deposit.UID, deposit.ListingID, deposit.BuyerID, deposit.AmountCents, deposit.Notes,
	)

	created, err := scanDeposit(row)
	if err != nil {
		if isUniqueViolation(err, "deposits_listing_buyer_key") {
			return nil, fmt.Errorf("%w: listing %d", ErrDepositExists, deposit.ListingID)
		}
		return nil, fmt.Errorf("insert deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

// GetDepositByID возвращает залог по идентификатору.
func (r *PostgresRepository) GetDepositByID(ctx context.Context, id int64) (*model.Deposit, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id)

	deposit, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	return deposit, nil
}

// ApproveDeposit одобряет залог и одновременно переводит автомобиль из available в reserved.
// Одобрение и смена статуса автомобиля выполняются в одной транзакции:
// если перевод статуса проигрывает гонку, залог остаётся в статусе pending.
func (r *PostgresRepository) ApproveDeposit(ctx context.Context, depositID, resolverID int64, notes *string) (*model.Deposit, error) {
	var approved *model.Deposit
	err := r.withRetry(ctx, func() error {
		var innerErr error
		approved, innerErr = r.approveDepositOnce(ctx, depositID, resolverID, notes)
		return innerErr
	})
	return approved, err
}

func (r *PostgresRepository) approveDepositOnce(ctx context.Context, depositID, resolverID int64, notes *string) (*model.Deposit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var listingID int64
	var status string
	err = tx.QueryRow(ctx,
		`SELECT listing_id, status FROM deposits WHERE id = $1 FOR UPDATE`, depositID,
	).Scan(&listingID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("lock deposit: %w", err)
	}

	if model.DepositStatus(status) != model.DepositStatusPending {
		return nil, ErrDepositNotPending
	}

	if err := r.casCarStatusTx(ctx, tx, listingID, []model.CarStatus{model.CarStatusAvailable}, model.CarStatusReserved); err != nil {
		return nil, err
	}

	row := tx.QueryRow(
		ctx,
		`UPDATE deposits
		 SET status = $2, resolved_by = $3, resolved_at = now(), notes = COALESCE($4, notes)
		 WHERE id = $1
		 RETURNING `+depositColumns,
		depositID, string(model.DepositStatusApproved), resolverID, notes,
	)

	deposit, err := scanDeposit(row)
	if err != nil {
		return nil, fmt.Errorf("approve deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return deposit, nil
}

// resolveDeposit выполняет условный перевод статуса залога: обновление проходит
// только если текущий статус равен from.
func (r *PostgresRepository) resolveDeposit(ctx context.Context, depositID, resolverID int64, notes *string, from, to model.DepositStatus, notInFromErr error) (*model.Deposit, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE deposits
		 SET status = $2, resolved_by = $3, resolved_at = now(), notes = COALESCE($4, notes)
		 WHERE id = $1 AND status = $5
		 RETURNING `+depositColumns,
		depositID, string(to), resolverID, notes, string(from),
	)

	deposit, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM deposits WHERE id = $1)`, depositID).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("check deposit exists: %w", checkErr)
			}
			if !exists {
				return nil, ErrDepositNotFound
			}
			return nil, notInFromErr
		}
		return nil, fmt.Errorf("resolve deposit: %w", err)
	}
	return deposit, nil
}

// RejectDeposit отклоняет залог в статусе pending; статус автомобиля не меняется.
func (r *PostgresRepository) RejectDeposit(ctx context.Context, depositID, resolverID int64, notes *string) (*model.Deposit, error) {
	return r.resolveDeposit(ctx, depositID, resolverID, notes,
		model.DepositStatusPending, model.DepositStatusRejected, ErrDepositNotPending)
}

// RefundDeposit переводит одобренный залог в статус refunded.
func (r *PostgresRepository) RefundDeposit(ctx context.Context, depositID, resolverID int64) (*model.Deposit, error) {
	return r.resolveDeposit(ctx, depositID, resolverID, nil,
		model.DepositStatusApproved, model.DepositStatusRefunded, ErrDepositNotApproved)
}

func (r *PostgresRepository) listDeposits(ctx context.Context, query string, args ...any) ([]model.Deposit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select deposits: %w", err)
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, *deposit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return deposits, nil
}

// GetDepositsByBuyer возвращает залоги, оставленные указанным покупателем.
func (r *PostgresRepository) GetDepositsByBuyer(ctx context.Context, buyerID int64) ([]model.Deposit, error) {
	return r.listDeposits(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID)
}

// GetDepositsByOwner возвращает залоги за автомобили указанного продавца.
func (r *PostgresRepository) GetDepositsByOwner(ctx context.Context, ownerID int64) ([]model.Deposit, error) {
	return r.listDeposits(ctx,
		`SELECT d.id, d.uid, d.listing_id, d.buyer_id, d.amount, d.notes, d.status, d.resolved_by, d.resolved_at, d.created_at
		 FROM deposits d
		 JOIN cars c ON c.id = d.listing_id
		 WHERE c.owner_id = $1
		 ORDER BY d.created_at DESC`,
		ownerID)
}

// GetAllDeposits возвращает все залоги.
func (r *PostgresRepository) GetAllDeposits(ctx context.Context) ([]model.Deposit, error) {
	return r.listDeposits(ctx,
		`SELECT `+depositColumns+` FROM deposits ORDER BY created_at DESC`)
}
