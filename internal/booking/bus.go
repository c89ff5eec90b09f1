package booking

import (
	"context"
	"errors"

	"busticket/internal/errs"
	"busticket/internal/models"
	"busticket/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BusInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Route    string `json:"route" validate:"required,max=200"`
	Capacity int    `json:"capacity" validate:"gt=0"`
}

func (s *Service) CreateBus(ctx context.Context, in BusInput) (models.Bus, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Bus{}, errs.FromValidation(err)
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return models.Bus{}, err
	}
	defer sess.Close()

	bus := models.Bus{Name: in.Name, Route: in.Route, Capacity: in.Capacity}
	if err := sess.DB().Create(&bus).Error; err != nil {
		return models.Bus{}, storage.Classify(err)
	}
	if err := sess.Commit(); err != nil {
		return models.Bus{}, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("invalidate bus cache", zap.Error(err))
	}
	s.log.Info("bus created", zap.Uint("bus_id", bus.ID), zap.Int("capacity", bus.Capacity))
	return bus, nil
}

// ListBuses returns the whole catalogue, from cache when possible. The
// cache generation is read before the database so a concurrent CreateBus
// invalidation wins over this write back.
func (s *Service) ListBuses(ctx context.Context) ([]models.Bus, error) {
	buses, gen, err := s.cache.Get(ctx)
	if err == nil {
		return buses, nil
	}
	miss := errors.Is(err, storage.ErrCacheMiss)
	if !miss {
		s.log.Warn("read bus cache", zap.Error(err))
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	buses = []models.Bus{}
	if err := sess.DB().Order("id").Find(&buses).Error; err != nil {
		return nil, storage.Classify(err)
	}

	if miss {
		if err := s.cache.Set(ctx, gen, buses); err != nil {
			s.log.Warn("write bus cache", zap.Error(err))
		}
	}
	return buses, nil
}

func (s *Service) GetBus(ctx context.Context, id uint) (models.Bus, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return models.Bus{}, err
	}
	defer sess.Close()

	return findBus(sess.DB(), id)
}

func findBus(db *gorm.DB, id uint) (models.Bus, error) {
	var bus models.Bus
	err := db.Take(&bus, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Bus{}, errs.NotFound("bus not found")
	}
	if err != nil {
		return models.Bus{}, storage.Classify(err)
	}
	return bus, nil
}
