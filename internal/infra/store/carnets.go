package store

import (
	"context"
	"errors"
	"fmt"

	"tontine-app/internal/domain/carnets"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CarnetStore keeps carnets and their audit trail in the SQL database.
type CarnetStore struct {
	db *gorm.DB
}

func NewCarnetStore(db *gorm.DB) *CarnetStore {
	return &CarnetStore{db: db}
}

func (s *CarnetStore) Get(ctx context.Context, id string) (carnets.Carnet, error) {
	var c carnets.Carnet
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return carnets.Carnet{}, carnets.ErrNotFound
		}
		return carnets.Carnet{}, fmt.Errorf("load carnet %s: %w", id, err)
	}
	return c, nil
}

func (s *CarnetStore) ListByClient(ctx context.Context, clientID uint) ([]carnets.Carnet, error) {
	var out []carnets.Carnet
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("cycle_start DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list carnets of client %d: %w", clientID, err)
	}
	return out, nil
}

func (s *CarnetStore) Create(ctx context.Context, c carnets.Carnet) (carnets.Carnet, error) {
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return carnets.Carnet{}, fmt.Errorf("create carnet: %w", err)
	}
	return c, nil
}

// ApplyMark locks the carnet row, runs mutate on it and stores the new day
// flags with their audit row in the same transaction. It returns the carnet as
// persisted and the entry written, nil when mutate found nothing to change.
func (s *CarnetStore) ApplyMark(ctx context.Context, id string, _ carnets.MarkDayCommand, mutate carnets.Mutation) (carnets.Carnet, *carnets.Transaction, error) {
	var (
		confirmed carnets.Carnet
		entry     *carnets.Transaction
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current carnets.Carnet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return carnets.ErrNotFound
			}
			return fmt.Errorf("lock carnet %s: %w", id, err)
		}

		next, e, err := mutate(current)
		if err != nil {
			return err
		}
		if e == nil {
			confirmed = current
			return nil
		}

		// struct updates go through the json serializer, map updates would not
		res := tx.Model(&next).
			Select("mises_cochees", "modified_at").
			Updates(&next)
		if res.Error != nil {
			return fmt.Errorf("update carnet %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return carnets.ErrNotFound
		}

		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("record transaction on carnet %s: %w", id, err)
		}
		entry = e
		return tx.First(&confirmed, "id = ?", id).Error
	})
	if err != nil {
		return carnets.Carnet{}, nil, err
	}
	return confirmed, entry, nil
}

func (s *CarnetStore) Transactions(ctx context.Context, carnetID string) ([]carnets.Transaction, error) {
	var out []carnets.Transaction
	if err := s.db.WithContext(ctx).
		Where("carnet_id = ?", carnetID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transactions of carnet %s: %w", carnetID, err)
	}
	return out, nil
}
