// Package cache содержит кэш объявлений в Redis для разгрузки чтений из БД.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/automarket-system/internal/model"
)

const listingTTL = 30 * time.Second

// Listings кэширует объявления по идентификатору.
// Кэш только ускоряет чтения: источником истины остаётся БД, поэтому TTL короткий,
// а при любом изменении статуса запись инвалидируется.
type Listings struct {
	client *redis.Client
}

// NewListings создаёт кэш объявлений и проверяет соединение с Redis.
func NewListings(addr string) (*Listings, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Listings{client: client}, nil
}

// Close закрывает соединение с Redis.
func (l *Listings) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func listingKey(carID int64) string {
	return fmt.Sprintf("listing:%d", carID)
}

// Get возвращает объявление из кэша; второй результат false при промахе.
func (l *Listings) Get(ctx context.Context, carID int64) (*model.Car, bool) {
	if l == nil || l.client == nil {
		return nil, false
	}

	data, err := l.client.Get(ctx, listingKey(carID)).Bytes()
	if err != nil {
		return nil, false
	}

	var car model.Car
	if err := json.Unmarshal(data, &car); err != nil {
		return nil, false
	}
	return &car, true
}

// Set сохраняет объявление в кэш.
func (l *Listings) Set(ctx context.Context, car *model.Car) {
	if l == nil || l.client == nil || car == nil {
		return
	}

	data, err := json.Marshal(car)
	if err != nil {
		return
	}
	l.client.Set(ctx, listingKey(car.ID), data, listingTTL)
}

// Invalidate удаляет объявление из кэша после изменения статуса.
func (l *Listings) Invalidate(ctx context.Context, carID int64) {
	if l == nil || l.client == nil {
		return
	}
	l.client.Del(ctx, listingKey(carID))
}
