// Package service реализует бизнес-логику сервиса автомаркет.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/automarket-system/internal/cache"
	"github.com/mmeshcher/automarket-system/internal/events"
	"github.com/mmeshcher/automarket-system/internal/model"
	"github.com/mmeshcher/automarket-system/internal/userdir"
	"github.com/mmeshcher/automarket-system/internal/validation"
)

// ErrForbidden возвращается, когда у пользователя нет прав на операцию.
var (
	ErrForbidden = errors.New("operation is not allowed for this user")
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("invalid input")
	// ErrBuyerNotFound возвращается, если покупатель не найден в справочнике пользователей.
	ErrBuyerNotFound = errors.New("buyer not found")
)

const maxNotesLen = 500

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateCar(ctx context.Context, car *model.Car) (int64, error)
	GetCarByID(ctx context.Context, id int64) (*model.Car, error)
	ListCars(ctx context.Context, status *model.CarStatus) ([]model.Car, error)

	CreateDeposit(ctx context.Context, deposit *model.Deposit) (*model.Deposit, error)
	GetDepositByID(ctx context.Context, id int64) (*model.Deposit, error)
	ApproveDeposit(ctx context.Context, depositID, resolverID int64, notes *string) (*model.Deposit, error)
	RejectDeposit(ctx context.Context, depositID, resolverID int64, notes *string) (*model.Deposit, error)
	RefundDeposit(ctx context.Context, depositID, resolverID int64) (*model.Deposit, error)
	GetDepositsByBuyer(ctx context.Context, buyerID int64) ([]model.Deposit, error)
	GetDepositsByOwner(ctx context.Context, ownerID int64) ([]model.Deposit, error)
	GetAllDeposits(ctx context.Context) ([]model.Deposit, error)

	CreateSale(ctx context.Context, sale *model.Sale) (*model.Sale, error)
	GetSaleByID(ctx context.Context, id int64) (*model.Sale, error)
	UpdateSaleStatus(ctx context.Context, saleID int64, to model.SaleStatus) (*model.Sale, error)
	GetSalesBySeller(ctx context.Context, sellerID int64) ([]model.Sale, error)
	GetAllSales(ctx context.Context) ([]model.Sale, error)

	CreateInvoice(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)
	GetInvoiceBySaleID(ctx context.Context, saleID int64) (*model.Invoice, error)
}

// Service содержит бизнес-логику сервиса автомаркет.
type Service struct {
	repo     Repository
	users    *userdir.Client
	events   *events.Publisher
	listings *cache.Listings
	logger   *zap.Logger
}

// NewService создаёт новый сервис. Клиент справочника пользователей, издатель
// событий и кэш объявлений необязательны: nil отключает соответствующую интеграцию.
func NewService(repo Repository, users *userdir.Client, publisher *events.Publisher, listings *cache.Listings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		users:    users,
		events:   publisher,
		listings: listings,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.listings != nil {
		_ = s.listings.Close()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateCarInput содержит данные нового объявления.
type CreateCarInput struct {
	Brand        string
	Model        string
	Year         int
	PriceCents   int64
	Mileage      int
	FuelType     string
	Transmission string
	Images       []string
	Description  string
	Features     []string
	Location     *string
	VIN          *string
}

// CreateCar создаёт объявление о продаже автомобиля в статусе available.
func (s *Service) CreateCar(ctx context.Context, p model.Principal, in CreateCarInput) (*model.Car, error) {
	if !canCreateListing(p) {
		return nil, ErrForbidden
	}

	if in.Brand == "" || in.Model == "" {
		return nil, fmt.Errorf("%w: brand and model are required", ErrValidation)
	}
	if in.Year < 1900 || in.Year > time.Now().Year()+1 {
		return nil, fmt.Errorf("%w: year %d is out of range", ErrValidation, in.Year)
	}
	if in.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if in.Mileage < 0 {
		return nil, fmt.Errorf("%w: mileage must be non-negative", ErrValidation)
	}
	if in.VIN != nil && !validation.IsValidVIN(*in.VIN) {
		return nil, fmt.Errorf("%w: invalid VIN", ErrValidation)
	}

	car := &model.Car{
		UID:          uuid.NewString(),
		OwnerID:      p.UserID,
		Brand:        in.Brand,
		Model:        in.Model,
		Year:         in.Year,
		PriceCents:   in.PriceCents,
		Mileage:      in.Mileage,
		FuelType:     in.FuelType,
		Transmission: in.Transmission,
		Images:       in.Images,
		Description:  in.Description,
		Features:     in.Features,
		Location:     in.Location,
		VIN:          in.VIN,
	}

	id, err := s.repo.CreateCar(ctx, car)
	if err != nil {
		return nil, err
	}

	return s.repo.GetCarByID(ctx, id)
}

// GetCar возвращает объявление по идентификатору, используя кэш при наличии.
func (s *Service) GetCar(ctx context.Context, carID int64) (*model.Car, error) {
	if car, ok := s.listings.Get(ctx, carID); ok {
		return car, nil
	}

	car, err := s.repo.GetCarByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	s.listings.Set(ctx, car)
	return car, nil
}

// ListAvailableCars возвращает объявления в статусе available.
func (s *Service) ListAvailableCars(ctx context.Context) ([]model.Car, error) {
	status := model.CarStatusAvailable
	return s.repo.ListCars(ctx, &status)
}

func validateNotes(notes *string) error {
	if notes != nil && len(*notes) > maxNotesLen {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxNotesLen)
	}
	return nil
}
