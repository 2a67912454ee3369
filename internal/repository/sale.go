package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/automarket-system/internal/model"
)

const saleColumns = `id, uid, car_id, buyer_id, seller_id, sale_type, total_amount,
	 down_payment, monthly_payment, lease_term, interest_rate, status, created_at, updated_at`

func scanSale(row carRow) (*model.Sale, error) {
	var s model.Sale
	err := row.Scan(
		&s.ID, &s.UID, &s.CarID, &s.BuyerID, &s.SellerID, &s.Type, &s.TotalCents,
		&s.DownPaymentCents, &s.MonthlyPaymentCents, &s.LeaseTermMonths, &s.InterestRate,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSale создаёт сделку и в той же транзакции переводит автомобиль в статус sold.
// Перевод выполняется условным обновлением из множества {available, reserved}:
// если другой актор уже продал автомобиль, вся операция завершается ErrStatusConflict.
// Оставшиеся pending-залоги на автомобиль отклоняются той же транзакцией.
func (r *PostgresRepository) CreateSale(ctx context.Context, sale *model.Sale) (*model.Sale, error) {
	var created *model.Sale
	err := r.withRetry(ctx, func() error {
		var innerErr error
		created, innerErr = r.createSaleOnce(ctx, sale)
		return innerErr
	})
	return created, err
}

func (r *PostgresRepository) createSaleOnce(ctx context.Context, sale *model.Sale) (*model.Sale, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	from := []model.CarStatus{model.CarStatusAvailable, model.CarStatusReserved}
	if err := r.casCarStatusTx(ctx, tx, sale.CarID, from, model.CarStatusSold); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO sales (uid, car_id, buyer_id, seller_id, sale_type, total_amount,
		                    down_payment, monthly_payment, lease_term, interest_rate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+saleColumns,
		sale.UID, sale.CarID, sale.BuyerID, sale.SellerID, string(sale.Type), sale.TotalCents,
		sale.DownPaymentCents, sale.MonthlyPaymentCents, sale.LeaseTermMonths, sale.InterestRate,
	)

	created, err := scanSale(row)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	// Автомобиль продан: оставшиеся pending-залоги больше не могут быть одобрены.
	_, err = tx.Exec(ctx,
		`UPDATE deposits
		 SET status = $2, resolved_by = $3, resolved_at = now(),
		     notes = COALESCE(notes || ' ', '') || 'auto-rejected: car sold'
		 WHERE listing_id = $1 AND status = $4`,
		sale.CarID, string(model.DepositStatusRejected), sale.SellerID, string(model.DepositStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("reject stale deposits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

// GetSaleByID возвращает сделку по идентификатору.
func (r *PostgresRepository) GetSaleByID(ctx context.Context, id int64) (*model.Sale, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

// UpdateSaleStatus выполняет условный перевод сделки из pending в completed или cancelled.
func (r *PostgresRepository) UpdateSaleStatus(ctx context.Context, saleID int64, to model.SaleStatus) (*model.Sale, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE sales SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING `+saleColumns,
		saleID, string(to), string(model.SaleStatusPending),
	)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, saleID).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("check sale exists: %w", checkErr)
			}
			if !exists {
				return nil, ErrSaleNotFound
			}
			return nil, ErrSaleNotPending
		}
		return nil, fmt.Errorf("update sale status: %w", err)
	}
	return sale, nil
}

func (r *PostgresRepository) listSales(ctx context.Context, query string, args ...any) ([]model.Sale, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sales, nil
}

// GetSalesBySeller возвращает сделки указанного продавца.
func (r *PostgresRepository) GetSalesBySeller(ctx context.Context, sellerID int64) ([]model.Sale, error) {
	return r.listSales(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE seller_id = $1 ORDER BY created_at DESC`,
		sellerID)
}

// GetAllSales возвращает все сделки.
func (r *PostgresRepository) GetAllSales(ctx context.Context) ([]model.Sale, error) {
	return r.listSales(ctx,
		`SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC`)
}
