package booking

import (
	"context"
	"errors"
	"time"

	"busticket/internal/errs"
	"busticket/internal/models"
	"busticket/internal/storage"
	"busticket/internal/ws"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingInput describes a seat request. TravelDate is YYYY-MM-DD.
type BookingInput struct {
	BusID       uint   `json:"bus_id" validate:"required"`
	Departure   string `json:"departure" validate:"required,max=200"`
	Destination string `json:"destination" validate:"required,max=200"`
	TravelDate  string `json:"travel_date" validate:"required"`
	Age         *int   `json:"age" validate:"omitempty,gte=0,lte=150"`
}

// Booking is a ticket plus its 1-based waiting queue position. Position is
// zero for tickets that are not waiting.
type Booking struct {
	Ticket        models.Ticket
	QueuePosition int
}

// QueuePosition is one waiting queue entry with its 1-based position.
type QueuePosition struct {
	Position int
	Entry    models.WaitingQueueEntry
}

// BookTicket reserves a seat when the bus still has capacity for the date;
// otherwise the ticket is created as Waiting and appended to the queue.
// The bus row is locked for the whole session so concurrent bookings never
// oversell.
func (s *Service) BookTicket(ctx context.Context, userID uint, in BookingInput) (Booking, error) {
	if err := s.validate.Struct(in); err != nil {
		return Booking{}, errs.FromValidation(err)
	}
	date, err := parseTravelDate(in.TravelDate)
	if err != nil {
		return Booking{}, err
	}
	if time.Time(date).Before(time.Time(models.Today())) {
		return Booking{}, errs.Validation("validation failed",
			errs.FieldError{Field: "travel_date", Error: "must not be in the past"})
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return Booking{}, err
	}
	defer sess.Close()

	bus, err := findBus(lockIfSupported(sess), in.BusID)
	if err != nil {
		return Booking{}, err
	}

	var confirmed int64
	err = sess.DB().Model(&models.Ticket{}).
		Where("bus_id = ? AND travel_date = ? AND status = ?", bus.ID, date, models.StatusConfirmed).
		Count(&confirmed).Error
	if err != nil {
		return Booking{}, storage.Classify(err)
	}

	ticket := models.Ticket{
		UserID:      userID,
		BusID:       bus.ID,
		Departure:   in.Departure,
		Destination: in.Destination,
		TravelDate:  date,
		Age:         in.Age,
		Status:      models.StatusConfirmed,
	}
	if confirmed >= int64(bus.Capacity) {
		ticket.Status = models.StatusWaiting
	}
	if err := sess.DB().Create(&ticket).Error; err != nil {
		return Booking{}, storage.Classify(err)
	}

	result := Booking{Ticket: ticket}
	if ticket.Status == models.StatusWaiting {
		entry := models.WaitingQueueEntry{TicketID: ticket.ID, BusID: bus.ID, TravelDate: date}
		if err := sess.DB().Create(&entry).Error; err != nil {
			return Booking{}, storage.Classify(err)
		}
		var ahead int64
		err := sess.DB().Model(&models.WaitingQueueEntry{}).
			Where("bus_id = ? AND travel_date = ?", bus.ID, date).
			Count(&ahead).Error
		if err != nil {
			return Booking{}, storage.Classify(err)
		}
		result.QueuePosition = int(ahead)
	}

	if err := sess.Commit(); err != nil {
		return Booking{}, err
	}

	s.log.Info("ticket booked",
		zap.Uint("ticket_id", ticket.ID), zap.Uint("bus_id", bus.ID), zap.String("status", ticket.Status))
	if ticket.Status == models.StatusWaiting {
		s.publish(bus.ID, ws.Event{Type: ws.EventTicketWaitlisted, Data: queueEventData(ticket, result.QueuePosition)})
	}
	return result, nil
}

// CancelTicket cancels one of the caller's tickets. Freeing a confirmed
// seat promotes the oldest waiting ticket for the same bus and date.
func (s *Service) CancelTicket(ctx context.Context, userID, ticketID uint) (models.Ticket, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer sess.Close()

	ticket, err := findOwnTicket(lockIfSupported(sess), userID, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	switch {
	case ticket.Complete:
		return models.Ticket{}, errs.Conflict("ticket is already completed")
	case ticket.Status == models.StatusCancelled:
		return models.Ticket{}, errs.Conflict("ticket is already cancelled")
	case ticket.Status == models.StatusExpired:
		return models.Ticket{}, errs.Conflict("ticket has expired")
	}

	if _, err := findBus(lockIfSupported(sess), ticket.BusID); err != nil {
		return models.Ticket{}, err
	}

	wasConfirmed := ticket.Status == models.StatusConfirmed
	if err := sess.DB().Model(&ticket).Update("status", models.StatusCancelled).Error; err != nil {
		return models.Ticket{}, storage.Classify(err)
	}
	ticket.Status = models.StatusCancelled

	var promoted *models.Ticket
	if wasConfirmed {
		promoted, err = promoteHead(sess.DB(), ticket.BusID, ticket.TravelDate)
		if err != nil {
			return models.Ticket{}, err
		}
	} else {
		err := sess.DB().Where("ticket_id = ?", ticket.ID).Delete(&models.WaitingQueueEntry{}).Error
		if err != nil {
			return models.Ticket{}, storage.Classify(err)
		}
	}

	if err := sess.Commit(); err != nil {
		return models.Ticket{}, err
	}

	s.log.Info("ticket cancelled", zap.Uint("ticket_id", ticket.ID), zap.Uint("bus_id", ticket.BusID))
	s.publish(ticket.BusID, ws.Event{Type: ws.EventTicketCancelled, Data: queueEventData(ticket, 0)})
	if promoted != nil {
		s.log.Info("waiting ticket promoted", zap.Uint("ticket_id", promoted.ID), zap.Uint("bus_id", promoted.BusID))
		s.publish(promoted.BusID, ws.Event{Type: ws.EventTicketPromoted, Data: queueEventData(*promoted, 0)})
	}
	return ticket, nil
}

// promoteHead removes the oldest queue entry for bus and date and confirms
// its ticket. It returns nil when the queue is empty.
func promoteHead(db *gorm.DB, busID uint, date datatypes.Date) (*models.Ticket, error) {
	var head models.WaitingQueueEntry
	err := db.Where("bus_id = ? AND travel_date = ?", busID, date).
		Order("queued_at, id").
		Take(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Classify(err)
	}

	if err := db.Delete(&head).Error; err != nil {
		return nil, storage.Classify(err)
	}

	var ticket models.Ticket
	if err := db.Take(&ticket, head.TicketID).Error; err != nil {
		return nil, storage.Classify(err)
	}
	if err := db.Model(&ticket).Update("status", models.StatusConfirmed).Error; err != nil {
		return nil, storage.Classify(err)
	}
	ticket.Status = models.StatusConfirmed
	return &ticket, nil
}

// CompleteTicket marks a confirmed ticket as travelled and records it in
// the caller's travel history.
func (s *Service) CompleteTicket(ctx context.Context, userID, ticketID uint) (models.Ticket, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer sess.Close()

	ticket, err := findOwnTicket(lockIfSupported(sess), userID, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if ticket.Complete {
		return models.Ticket{}, errs.Conflict("ticket is already completed")
	}
	if ticket.Status != models.StatusConfirmed {
		return models.Ticket{}, errs.Conflict("only confirmed tickets can be completed")
	}

	if err := RecordTrip(sess.DB(), &ticket); err != nil {
		return models.Ticket{}, err
	}
	if err := sess.Commit(); err != nil {
		return models.Ticket{}, err
	}

	s.log.Info("ticket completed", zap.Uint("ticket_id", ticket.ID))
	return ticket, nil
}

// RecordTrip flags ticket complete and appends the matching travel history
// row. Both writes go through db, so they share the caller's transaction.
func RecordTrip(db *gorm.DB, ticket *models.Ticket) error {
	if err := db.Model(ticket).Update("complete", true).Error; err != nil {
		return storage.Classify(err)
	}
	ticket.Complete = true
	history := models.TravelHistory{
		UserID:      ticket.UserID,
		Departure:   ticket.Departure,
		Destination: ticket.Destination,
		TravelDate:  ticket.TravelDate,
	}
	if err := db.Create(&history).Error; err != nil {
		return storage.Classify(err)
	}
	return nil
}

// MyTickets lists the caller's tickets, latest travel date first.
func (s *Service) MyTickets(ctx context.Context, userID uint) ([]models.Ticket, error) {
	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	tickets := []models.Ticket{}
	err = sess.DB().Where("user_id = ?", userID).
		Order("travel_date DESC, id DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, storage.Classify(err)
	}
	return tickets, nil
}

// QueueFor lists the waiting queue of a bus for one travel date, head
// first.
func (s *Service) QueueFor(ctx context.Context, busID uint, travelDate string) ([]QueuePosition, error) {
	date, err := parseTravelDate(travelDate)
	if err != nil {
		return nil, err
	}

	sess, err := s.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if _, err := findBus(sess.DB(), busID); err != nil {
		return nil, err
	}

	var entries []models.WaitingQueueEntry
	err = sess.DB().Where("bus_id = ? AND travel_date = ?", busID, date).
		Order("queued_at, id").
		Find(&entries).Error
	if err != nil {
		return nil, storage.Classify(err)
	}

	queue := make([]QueuePosition, len(entries))
	for i, e := range entries {
		queue[i] = QueuePosition{Position: i + 1, Entry: e}
	}
	return queue, nil
}

func findOwnTicket(db *gorm.DB, userID, ticketID uint) (models.Ticket, error) {
	var ticket models.Ticket
	err := db.Where("id = ? AND user_id = ?", ticketID, userID).Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Ticket{}, errs.NotFound("ticket not found")
	}
	if err != nil {
		return models.Ticket{}, storage.Classify(err)
	}
	return ticket, nil
}

func lockIfSupported(sess *storage.Session) *gorm.DB {
	if !sess.SupportsRowLocks() {
		return sess.DB()
	}
	return sess.DB().Clauses(clause.Locking{Strength: "UPDATE"})
}

func parseTravelDate(s string) (datatypes.Date, error) {
	date, err := models.ParseDate(s)
	if err != nil {
		return datatypes.Date{}, errs.Validation("validation failed",
			errs.FieldError{Field: "travel_date", Error: "must be a date in YYYY-MM-DD format"})
	}
	return date, nil
}

func queueEventData(t models.Ticket, position int) map[string]interface{} {
	data := map[string]interface{}{
		"ticket_id":   t.ID,
		"travel_date": time.Time(t.TravelDate).Format(time.DateOnly),
		"status":      t.Status,
	}
	if position > 0 {
		data["position"] = position
	}
	return data
}
