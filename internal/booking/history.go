package booking

import (
	"context"

	"busticket/internal/models"
	"busticket/internal/storage"
)

// History lists the caller's completed trips, most recent first.
func (s *Service) History(ctx context.Context, userID uint) ([]models.TravelHistory, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	history := []models.TravelHistory{}
	err = sess.DB().Where("user_id = ?", userID).
		Order("travel_date DESC, id DESC").
		Find(&history).Error
	if err != nil {
		return nil, storage.Classify(err)
	}
	return history, nil
}
