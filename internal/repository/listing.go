package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/automarket-system/internal/model"
)

const carColumns = `id, uid, owner_id, brand, model, year, price, mileage, fuel_type,
	 transmission, images, description, features, location, vin, status, created_at, updated_at`

type carRow interface {
	Scan(dest ...any) error
}

func scanCar(row carRow) (*model.Car, error) {
	var c model.Car
	err := row.Scan(
		&c.ID, &c.UID, &c.OwnerID, &c.Brand, &c.Model, &c.Year, &c.PriceCents, &c.Mileage,
		&c.FuelType, &c.Transmission, &c.Images, &c.Description, &c.Features,
		&c.Location, &c.VIN, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCar сохраняет новое объявление в статусе available и возвращает его идентификатор.
func (r *PostgresRepository) CreateCar(ctx context.Context, car *model.Car) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cars (uid, owner_id, brand, model, year, price, mileage, fuel_type,
		                   transmission, images, description, features, location, vin, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		car.UID, car.OwnerID, car.Brand, car.Model, car.Year, car.PriceCents, car.Mileage,
		car.FuelType, car.Transmission, car.Images, car.Description, car.Features,
		car.Location, car.VIN, string(model.CarStatusAvailable),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert car: %w", err)
	}
	return id, nil
}

// GetCarByID возвращает объявление по идентификатору.
func (r *PostgresRepository) GetCarByID(ctx context.Context, id int64) (*model.Car, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+carColumns+` FROM cars WHERE id = $1`, id)

	car, err := scanCar(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("get car: %w", err)
	}
	return car, nil
}

// ListCars возвращает объявления в указанном статусе; nil означает все статусы.
func (r *PostgresRepository) ListCars(ctx context.Context, status *model.CarStatus) ([]model.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars ORDER BY created_at DESC`
	args := []any{}
	if status != nil {
		query = `SELECT ` + carColumns + ` FROM cars WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, string(*status))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cars: %w", err)
	}
	defer rows.Close()

	var cars []model.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, *car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cars, nil
}

// casCarStatusTx выполняет атомарный условный перевод статуса объявления (compare-and-swap):
// обновление проходит только если текущий статус входит в множество from.
// Если объявление существует, но статус уже изменён конкурентной операцией,
// возвращается ErrStatusConflict.
func (r *PostgresRepository) casCarStatusTx(ctx context.Context, tx pgx.Tx, carID int64, from []model.CarStatus, to model.CarStatus) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE cars SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = ANY($2)`,
		carID, statusStrings(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cars WHERE id = $1)`, carID).Scan(&exists); err != nil {
			return fmt.Errorf("check car exists: %w", err)
		}
		if !exists {
			return ErrCarNotFound
		}
		return ErrStatusConflict
	}

	return nil
}

func statusStrings(statuses []model.CarStatus) []string {
	res := make([]string, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, string(s))
	}
	return res
}
