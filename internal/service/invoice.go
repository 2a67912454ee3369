package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/events"
	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/repository"
)

const (
	maxInvoiceNotesLen         = 1000
	invoiceNumberMaxRetries    = 3
	invoiceNumberRetryDelay    = 50 * time.Millisecond
	defaultInvoicePaymentTerms = "Due within 30 days"
)

// InvoiceInput содержит данные для выставления счёта по сделке.
type InvoiceInput struct {
	Buyer         model.Party
	Seller        model.Party
	Car           model.CarSnapshot
	Items         []model.InvoiceItem
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	DueDate       time.Time
	PaymentTerms  string
	Notes         *string
}

func validateInvoiceInput(in InvoiceInput) error {
	if in.Buyer.Name == "" || in.Buyer.Email == "" {
		return fmt.Errorf("%w: buyer name and email are required", ErrValidation)
	}
	if in.Seller.Name == "" || in.Seller.Email == "" {
		return fmt.Errorf("%w: seller name and email are required", ErrValidation)
	}
	if in.Car.Brand == "" || in.Car.Model == "" {
		return fmt.Errorf("%w: car brand and model are required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: invoice requires at least one item", ErrValidation)
	}
	for i, item := range in.Items {
		if item.Description == "" {
			return fmt.Errorf("%w: item %d has empty description", ErrValidation, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrValidation, i)
		}
		if item.UnitPriceCents < 0 {
			return fmt.Errorf("%w: item %d unit price must be non-negative", ErrValidation, i)
		}
	}
	if in.SubtotalCents < 0 || in.TaxCents < 0 || in.TotalCents < 0 {
		return fmt.Errorf("%w: subtotal, tax and total must be non-negative", ErrValidation)
	}
	if in.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if in.Notes != nil && len(*in.Notes) > maxInvoiceNotesLen {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxInvoiceNotesLen)
	}
	return nil
}

// GenerateInvoice выставляет счёт по сделке от имени её продавца или администратора.
// По одной сделке может существовать не более одного счёта. Коллизия номера счёта
// повторяется ограниченное число раз, после чего ошибка отдаётся вызывающей стороне.
func (s *Service) GenerateInvoice(ctx context.Context, p model.Principal, saleID int64, in InvoiceInput) (*model.Invoice, error) {
	if err := validateInvoiceInput(in); err != nil {
		return nil, err
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !canManageSale(p, sale) {
		return nil, ErrForbidden
	}

	// Предварительная проверка дубликата; ограничение уникальности на sale_id
	// закрывает оставшуюся гонку.
	if _, err := s.repo.GetInvoiceBySaleID(ctx, saleID); err == nil {
		return nil, fmt.Errorf("%w: sale %d", repository.ErrInvoiceExists, saleID)
	} else if !errors.Is(err, repository.ErrInvoiceNotFound) {
		return nil, err
	}

	items := make([]model.InvoiceItem, len(in.Items))
	for i, item := range in.Items {
		item.TotalCents = int64(item.Quantity) * item.UnitPriceCents
		items[i] = item
	}

	paymentTerms := in.PaymentTerms
	if paymentTerms == "" {
		paymentTerms = defaultInvoicePaymentTerms
	}

	invoice := &model.Invoice{
		UID:           uuid.NewString(),
		SaleID:        saleID,
		Buyer:         in.Buyer,
		Seller:        in.Seller,
		Car:           in.Car,
		Items:         items,
		SubtotalCents: in.SubtotalCents,
		TaxCents:      in.TaxCents,
		TotalCents:    in.TotalCents,
		PaymentTerms:  paymentTerms,
		DueDate:       in.DueDate,
		Notes:         in.Notes,
	}

	var created *model.Invoice
	backoff := retry.WithMaxRetries(invoiceNumberMaxRetries, retry.NewConstant(invoiceNumberRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var innerErr error
		created, innerErr = s.repo.CreateInvoice(ctx, invoice)
		if errors.Is(innerErr, repository.ErrInvoiceNumberTaken) {
			return retry.RetryableError(innerErr)
		}
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishInvoiceIssued(ctx, events.InvoiceIssuedEvent{
		InvoiceID:  created.ID,
		SaleID:     created.SaleID,
		Number:     created.Number,
		TotalCents: created.TotalCents,
		IssuedAt:   time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("publish invoice issued event", zap.Error(err), zap.Int64("invoiceID", created.ID))
	}

	return created, nil
}

// GetInvoiceForSale возвращает сделку вместе со счётом; доступно сторонам сделки и администраторам.
func (s *Service) GetInvoiceForSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, *model.Invoice, error) {
	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if !canViewSale(p, sale) {
		return nil, nil, ErrForbidden
	}

	invoice, err := s.repo.GetInvoiceBySaleID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	return sale, invoice, nil
}
