package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/events"
	"github.com/mmeshcher/automarket-system/internal/model"
)

// CreateSaleInput содержит данные новой сделки.
type CreateSaleInput struct {
	CarID               int64
	BuyerID             int64
	Type                model.SaleType
	TotalCents          int64
	DownPaymentCents    *int64
	MonthlyPaymentCents *int64
	LeaseTermMonths     *int
	InterestRate        *float64
}

func validateSaleInput(in CreateSaleInput) error {
	switch in.Type {
	case model.SaleTypeFull, model.SaleTypeLeasing:
	default:
		return fmt.Errorf("%w: unknown sale type %q", ErrValidation, in.Type)
	}

	if in.TotalCents <= 0 {
		return fmt.Errorf("%w: total amount must be positive", ErrValidation)
	}

	if in.Type == model.SaleTypeLeasing {
		if in.DownPaymentCents == nil || *in.DownPaymentCents <= 0 {
			return fmt.Errorf("%w: leasing sale requires positive down payment", ErrValidation)
		}
		if in.MonthlyPaymentCents == nil || *in.MonthlyPaymentCents <= 0 {
			return fmt.Errorf("%w: leasing sale requires positive monthly payment", ErrValidation)
		}
		if in.LeaseTermMonths == nil || *in.LeaseTermMonths < 1 || *in.LeaseTermMonths > 120 {
			return fmt.Errorf("%w: lease term must be between 1 and 120 months", ErrValidation)
		}
		if in.InterestRate != nil && (*in.InterestRate < 0 || *in.InterestRate > 100) {
			return fmt.Errorf("%w: interest rate must be between 0 and 100", ErrValidation)
		}
	}

	return nil
}

// CreateSale создаёт сделку от имени владельца объявления или администратора.
// Валидация и проверка прав выполняются до каких-либо изменений: при ошибке
// статус автомобиля не меняется. Продажа переводит автомобиль в sold атомарно,
// конкурентная продажа того же автомобиля завершается конфликтом.
func (s *Service) CreateSale(ctx context.Context, p model.Principal, in CreateSaleInput) (*model.Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	car, err := s.repo.GetCarByID(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	if !canManageListing(p, car.OwnerID) {
		return nil, ErrForbidden
	}

	if s.users != nil {
		exists, err := s.users.UserExists(ctx, in.BuyerID)
		if err != nil {
			return nil, fmt.Errorf("check buyer: %w", err)
		}
		if !exists {
			return nil, ErrBuyerNotFound
		}
	}

	sale := &model.Sale{
		UID:                 uuid.NewString(),
		CarID:               in.CarID,
		BuyerID:             in.BuyerID,
		SellerID:            car.OwnerID,
		Type:                in.Type,
		TotalCents:          in.TotalCents,
		DownPaymentCents:    in.DownPaymentCents,
		MonthlyPaymentCents: in.MonthlyPaymentCents,
		LeaseTermMonths:     in.LeaseTermMonths,
		InterestRate:        in.InterestRate,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, in.CarID)

	if err := s.events.PublishSaleCreated(ctx, events.SaleCreatedEvent{
		SaleID:     created.ID,
		CarID:      created.CarID,
		BuyerID:    created.BuyerID,
		SellerID:   created.SellerID,
		SaleType:   string(created.Type),
		TotalCents: created.TotalCents,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("publish sale created event", zap.Error(err), zap.Int64("saleID", created.ID))
	}

	return created, nil
}

// CompleteSale переводит сделку из pending в completed.
// Завершение не выполняется автоматически: это явный шаг продавца или администратора.
func (s *Service) CompleteSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error) {
	return s.transitionSale(ctx, p, saleID, model.SaleStatusCompleted)
}

// CancelSale переводит сделку из pending в cancelled.
// Статус автомобиля при отмене не откатывается: граф статусов движется только вперёд.
func (s *Service) CancelSale(ctx context.Context, p model.Principal, saleID int64) (*model.Sale, error) {
	return s.transitionSale(ctx, p, saleID, model.SaleStatusCancelled)
}

func (s *Service) transitionSale(ctx context.Context, p model.Principal, saleID int64, to model.SaleStatus) (*model.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !canManageSale(p, sale) {
		return nil, ErrForbidden
	}

	return s.repo.UpdateSaleStatus(ctx, saleID, to)
}

// SalesFor возвращает сделки текущего пользователя; администратор видит все сделки.
func (s *Service) SalesFor(ctx context.Context, p model.Principal) ([]model.Sale, error) {
	if p.IsAdmin() {
		return s.repo.GetAllSales(ctx)
	}
	return s.repo.GetSalesBySeller(ctx, p.UserID)
}
