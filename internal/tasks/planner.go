package tasks

import (
	"context"
	"fmt"
	"time"

	"busticket/internal/booking"
	"busticket/internal/models"
	"busticket/internal/storage"
	"busticket/internal/ws"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = time.Minute

// Planner runs periodic maintenance over tickets and the waiting queue.
type Planner struct {
	gw     *storage.Gateway
	notify booking.Notifier
	log    *zap.Logger
}

func NewPlanner(gw *storage.Gateway, notify booking.Notifier, log *zap.Logger) *Planner {
	return &Planner{gw: gw, notify: notify, log: log.Named("planner")}
}

// CompleteDepartedTickets marks confirmed tickets whose travel date has
// passed as complete and records them in travel history.
func (p *Planner) CompleteDepartedTickets(ctx context.Context) (int, error) {
	sess, err := p.gw.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	var tickets []models.Ticket
	err = sess.DB().
		Where("status = ? AND complete = ? AND travel_date < ?", models.StatusConfirmed, false, models.Today()).
		Order("id").
		Find(&tickets).Error
	if err != nil {
		return 0, storage.Classify(err)
	}

	for i := range tickets {
		if err := booking.RecordTrip(sess.DB(), &tickets[i]); err != nil {
			return 0, err
		}
	}
	if err := sess.Commit(); err != nil {
		return 0, err
	}
	return len(tickets), nil
}

// ExpireStaleWaitlist expires waiting tickets whose travel date has passed
// and drops their queue entries.
func (p *Planner) ExpireStaleWaitlist(ctx context.Context) (int, error) {
	sess, err := p.gw.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	var tickets []models.Ticket
	err = sess.DB().
		Where("status = ? AND travel_date < ?", models.StatusWaiting, models.Today()).
		Order("id").
		Find(&tickets).Error
	if err != nil {
		return 0, storage.Classify(err)
	}
	if len(tickets) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	if err := sess.DB().Where("ticket_id IN ?", ids).Delete(&models.WaitingQueueEntry{}).Error; err != nil {
		return 0, storage.Classify(err)
	}
	err = sess.DB().Model(&models.Ticket{}).
		Where("id IN ?", ids).
		Update("status", models.StatusExpired).Error
	if err != nil {
		return 0, storage.Classify(err)
	}
	if err := sess.Commit(); err != nil {
		return 0, err
	}

	if p.notify != nil {
		for _, t := range tickets {
			p.notify.Publish(t.BusID, ws.Event{Type: ws.EventTicketExpired, Data: map[string]interface{}{
				"ticket_id":   t.ID,
				"travel_date": time.Time(t.TravelDate).Format(time.DateOnly),
			}})
		}
	}
	return len(tickets), nil
}

// RunMaintenance runs every job once. Failures are logged; one job failing
// does not stop the next.
func (p *Planner) RunMaintenance(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	if n, err := p.CompleteDepartedTickets(ctx); err != nil {
		p.log.Error("complete departed tickets", zap.Error(err))
	} else if n > 0 {
		p.log.Info("departed tickets completed", zap.Int("count", n))
	}

	if n, err := p.ExpireStaleWaitlist(ctx); err != nil {
		p.log.Error("expire stale waitlist", zap.Error(err))
	} else if n > 0 {
		p.log.Info("stale waiting tickets expired", zap.Int("count", n))
	}
}

// InitScheduler registers RunMaintenance on a seconds-enabled cron spec and
// starts the scheduler. Stop it with the returned Cron.
func (p *Planner) InitScheduler(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() { p.RunMaintenance(ctx) })
	if err != nil {
		return nil, fmt.Errorf("schedule maintenance %q: %w", spec, err)
	}

	c.Start()
	p.log.Info("cron scheduler started", zap.String("schedule", spec))
	return c, nil
}
