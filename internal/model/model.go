// Package model содержит доменные сущности сервиса автомаркет.
package model

import "time"

// Role описывает роль аутентифицированного пользователя.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Principal описывает аутентифицированного пользователя, полученного от внешнего сервиса авторизации.
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin возвращает true, если пользователь имеет роль администратора.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CarStatus описывает статус объявления о продаже автомобиля.
type CarStatus string

const (
	CarStatusAvailable CarStatus = "available"
	CarStatusReserved  CarStatus = "reserved"
	CarStatusSold      CarStatus = "sold"
)

// Car описывает объявление о продаже автомобиля.
// Поле Status — единственная точка конкуренции между параллельными операциями:
// все его изменения выполняются условным обновлением в хранилище.
type Car struct {
	ID           int64
	UID          string
	OwnerID      int64
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
	Status       CarStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DepositStatus описывает статус залога.
type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "pending"
	DepositStatusApproved DepositStatus = "approved"
	DepositStatusRejected DepositStatus = "rejected"
	DepositStatusRefunded DepositStatus = "refunded"
)

// Deposit описывает залог покупателя за автомобиль.
// На пару (объявление, покупатель) может существовать не более одного залога.
type Deposit struct {
	ID          int64
	UID         string
	ListingID   int64
	BuyerID     int64
	AmountCents int64
	Notes       *string
	Status      DepositStatus
	ResolvedBy  *int64
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

// SaleType описывает тип сделки: полная покупка или лизинг.
type SaleType string

const (
	SaleTypeFull    SaleType = "full"
	SaleTypeLeasing SaleType = "leasing"
)

// SaleStatus описывает статус сделки.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale описывает сделку купли-продажи автомобиля.
// Поля лизинга заполняются только для сделок типа leasing.
type Sale struct {
	ID                  int64
	UID                 string
	CarID               int64
	BuyerID             int64
	SellerID            int64
	Type                SaleType
	TotalCents          int64
	DownPaymentCents    *int64
	MonthlyPaymentCents *int64
	LeaseTermMonths     *int
	InterestRate        *float64
	Status              SaleStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// InvoiceStatus описывает статус счёта.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Party содержит снимок данных стороны сделки на момент выставления счёта.
type Party struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// CarSnapshot содержит снимок данных автомобиля на момент выставления счёта.
type CarSnapshot struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Year  int     `json:"year"`
	VIN   *string `json:"vin,omitempty"`
}

// InvoiceItem описывает одну позицию счёта.
type InvoiceItem struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// Invoice описывает счёт, выставленный по одной сделке.
// Номер счёта уникален глобально и присваивается атомарно при создании.
type Invoice struct {
	ID            int64
	UID           string
	SaleID        int64
	Number        string
	Buyer         Party
	Seller        Party
	Car           CarSnapshot
	Items         []InvoiceItem
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	PaymentTerms  string
	DueDate       time.Time
	Status        InvoiceStatus
	Notes         *string
	CreatedAt     time.Time
}
