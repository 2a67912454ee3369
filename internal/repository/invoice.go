package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/automarket-system/internal/model"
)

const invoiceColumns = `id, uid, sale_id, invoice_number, buyer_info, seller_info, car_info,
	 items, subtotal, tax, total, payment_terms, due_date, status, notes, created_at`

func scanInvoice(row carRow) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID, &inv.UID, &inv.SaleID, &inv.Number, &inv.Buyer, &inv.Seller, &inv.Car,
		&inv.Items, &inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents,
		&inv.PaymentTerms, &inv.DueDate, &inv.Status, &inv.Notes, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvoice создаёт счёт по сделке, присваивая номер из счётчика за текущий год.
// Инкремент счётчика и вставка счёта выполняются в одной транзакции, поэтому два
// конкурентных вызова не получат одинаковый номер. Повторный счёт по той же сделке
// отклоняется ограничением уникальности на sale_id, коллизия номера — ограничением
// на invoice_number (такая ошибка возвращается как ErrInvoiceNumberTaken и может
// быть повторена вызывающей стороной).
func (r *PostgresRepository) CreateInvoice(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	year := time.Now().UTC().Year()

	var seq int64
	err = tx.QueryRow(ctx,
		`INSERT INTO invoice_counters (year, last_seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		 RETURNING last_seq`,
		year,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next invoice sequence: %w", err)
	}

	number := fmt.Sprintf("INV-%d-%04d", year, seq)

	row := tx.QueryRow(ctx,
		`INSERT INTO invoices (uid, sale_id, invoice_number, buyer_info, seller_info, car_info,
		                       items, subtotal, tax, total, payment_terms, due_date, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+invoiceColumns,
		invoice.UID, invoice.SaleID, number, invoice.Buyer, invoice.Seller, invoice.Car,
		invoice.Items, invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents,
		invoice.PaymentTerms, invoice.DueDate, string(model.InvoiceStatusDraft), invoice.Notes,
	)

	created, err := scanInvoice(row)
	if err != nil {
		if isUniqueViolation(err, "invoices_sale_id_key") {
			return nil, fmt.Errorf("%w: sale %d", ErrInvoiceExists, invoice.SaleID)
		}
		if isUniqueViolation(err, "invoices_number_key") {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNumberTaken, number)
		}
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

// GetInvoiceBySaleID возвращает счёт, выставленный по указанной сделке.
func (r *PostgresRepository) GetInvoiceBySaleID(ctx context.Context, saleID int64) (*model.Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE sale_id = $1`, saleID)

	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return invoice, nil
}
