// Package booking manages the bus catalogue, ticket reservations, the
// per-bus waiting queue and travel history.
package booking

import (
	"busticket/internal/errs"
	"busticket/internal/storage"
	"busticket/internal/ws"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Notifier receives queue events after the change that caused them is
// committed.
type Notifier interface {
	Publish(busID uint, ev ws.Event)
}

type Service struct {
	gw       *storage.Gateway
	cache    *storage.BusCache
	notify   Notifier
	validate *validator.Validate
	log      *zap.Logger
}

// NewService wires the booking service. cache and notify may be nil.
func NewService(gw *storage.Gateway, cache *storage.BusCache, notify Notifier, log *zap.Logger) *Service {
	return &Service{
		gw:       gw,
		cache:    cache,
		notify:   notify,
		validate: errs.NewValidator(),
		log:      log.Named("booking"),
	}
}

func (s *Service) publish(busID uint, ev ws.Event) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(busID, ev)
}
