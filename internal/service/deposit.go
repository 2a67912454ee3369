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

// PlaceDeposit создаёт залог покупателя за автомобиль в статусе available.
// Залог за собственное объявление не допускается.
func (s *Service) PlaceDeposit(ctx context.Context, p model.Principal, listingID, amountCents int64, notes *string) (*model.Deposit, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	car, err := s.repo.GetCarByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID == p.UserID {
		return nil, fmt.Errorf("%w: cannot deposit on own listing", ErrValidation)
	}

	deposit := &model.Deposit{
		UID:         uuid.NewString(),
		ListingID:   listingID,
		BuyerID:     p.UserID,
		AmountCents: amountCents,
		Notes:       notes,
	}

	return s.repo.CreateDeposit(ctx, deposit)
}

// ApproveDeposit одобряет залог от имени владельца объявления или администратора.
// Одобрение атомарно резервирует автомобиль; проигрыш гонки со встречной операцией
// возвращается вызывающей стороне как конфликт, залог при этом остаётся pending.
func (s *Service) ApproveDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error) {
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	deposit, err := s.repo.GetDepositByID(ctx, depositID)
	if err != nil {
		return nil, err
	}

	car, err := s.repo.GetCarByID(ctx, deposit.ListingID)
	if err != nil {
		return nil, err
	}
	if !canResolveDeposit(p, car.OwnerID) {
		return nil, ErrForbidden
	}

	approved, err := s.repo.ApproveDeposit(ctx, depositID, p.UserID, notes)
	if err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, deposit.ListingID)

	if err := s.events.PublishDepositApproved(ctx, events.DepositApprovedEvent{
		DepositID:   approved.ID,
		ListingID:   approved.ListingID,
		BuyerID:     approved.BuyerID,
		AmountCents: approved.AmountCents,
		ApprovedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("publish deposit approved event", zap.Error(err), zap.Int64("depositID", approved.ID))
	}

	return approved, nil
}

// RejectDeposit отклоняет залог от имени владельца объявления или администратора.
func (s *Service) RejectDeposit(ctx context.Context, p model.Principal, depositID int64, notes *string) (*model.Deposit, error) {
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	deposit, err := s.repo.GetDepositByID(ctx, depositID)
	if err != nil {
		return nil, err
	}

	car, err := s.repo.GetCarByID(ctx, deposit.ListingID)
	if err != nil {
		return nil, err
	}
	if !canResolveDeposit(p, car.OwnerID) {
		return nil, ErrForbidden
	}

	return s.repo.RejectDeposit(ctx, depositID, p.UserID, notes)
}

// RefundDeposit возвращает одобренный залог; операция доступна только администраторам.
func (s *Service) RefundDeposit(ctx context.Context, p model.Principal, depositID int64) (*model.Deposit, error) {
	if !canRefundDeposit(p) {
		return nil, ErrForbidden
	}
	return s.repo.RefundDeposit(ctx, depositID, p.UserID)
}

// DepositsForBuyer возвращает залоги текущего пользователя.
func (s *Service) DepositsForBuyer(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	return s.repo.GetDepositsByBuyer(ctx, p.UserID)
}

// DepositsForOwner возвращает залоги за автомобили текущего пользователя.
func (s *Service) DepositsForOwner(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	return s.repo.GetDepositsByOwner(ctx, p.UserID)
}

// AllDeposits возвращает все залоги; операция доступна только администраторам.
func (s *Service) AllDeposits(ctx context.Context, p model.Principal) ([]model.Deposit, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.GetAllDeposits(ctx)
}
