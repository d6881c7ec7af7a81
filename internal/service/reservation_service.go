package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cantina/internal/config"
	"cantina/internal/model"
	"cantina/internal/repository"

	"gorm.io/gorm"
)

// ReservationService allocates the scarce spots of a dated menu. The menu
// row lock is the arena: the capacity check, the counter increment and the
// reservation insert always share one transaction, closing the race for the
// last slot.
type ReservationService struct {
	db         *gorm.DB
	cfg        *config.Config
	menuRepo   *repository.MenuRepository
	outboxRepo *repository.OutboxRepository
}

func NewReservationService(db *gorm.DB, cfg *config.Config) *ReservationService {
	return &ReservationService{
		db:         db,
		cfg:        cfg,
		menuRepo:   repository.NewMenuRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
	}
}

type CreateMenuRequest struct {
	MenuDate            time.Time
	Description         string
	PriceCents          int64
	MaxReservations     *int
	ReservationDeadline time.Time
}

// CreateMenu publishes a dated menu. A zero deadline defaults to the
// configured hours before the menu date.
func (s *ReservationService) CreateMenu(ctx context.Context, req *CreateMenuRequest) (*model.Menu, error) {
	if req.MenuDate.IsZero() {
		return nil, validationErrorf("menu date is required")
	}
	if req.PriceCents <= 0 {
		return nil, validationErrorf("menu price must be positive")
	}
	if req.MaxReservations != nil && *req.MaxReservations < 1 {
		return nil, validationErrorf("max reservations must be at least 1")
	}

	deadline := req.ReservationDeadline
	if deadline.IsZero() {
		deadline = req.MenuDate.Add(-time.Duration(s.cfg.Business.ReservationDeadlineHours) * time.Hour)
	}
	if !deadline.Before(req.MenuDate) {
		return nil, validationErrorf("deadline must be before the menu date")
	}

	menu := &model.Menu{
		MenuDate:            req.MenuDate,
		Description:         req.Description,
		PriceCents:          req.PriceCents,
		ReservationDeadline: deadline,
		MaxReservations:     req.MaxReservations,
		Active:              true,
	}
	if err := s.menuRepo.CreateMenu(ctx, menu); err != nil {
		return nil, err
	}
	return menu, nil
}

func (s *ReservationService) GetMenu(ctx context.Context, menuID int64) (*model.Menu, error) {
	return s.menuRepo.GetMenuByID(ctx, menuID)
}

func (s *ReservationService) ListMenus(ctx context.Context, from, to time.Time, onlyActive bool) ([]*model.Menu, error) {
	return s.menuRepo.ListMenus(ctx, from, to, onlyActive)
}

func (s *ReservationService) DeactivateMenu(ctx context.Context, menuID int64) error {
	return s.menuRepo.UpdateMenu(ctx, nil, menuID, map[string]interface{}{"active": false})
}

// ReserveCheck is the advisory answer of CanReserve. The authoritative check
// runs again under the row lock inside CreateReservation.
type ReserveCheck struct {
	OK             bool   `json:"ok"`
	Reason         string `json:"reason,omitempty"`
	SpotsAvailable int    `json:"spots_available"`
}

func (s *ReservationService) CanReserve(ctx context.Context, menuID int64) (*ReserveCheck, error) {
	menu, err := s.menuRepo.GetMenuByID(ctx, menuID)
	if err != nil {
		return nil, err
	}
	check := &ReserveCheck{SpotsAvailable: menu.SpotsAvailable()}
	switch {
	case !menu.Active:
		check.Reason = "menu is not active"
	case time.Now().After(menu.ReservationDeadline):
		check.Reason = "reservation deadline has passed"
	case menu.Full():
		check.Reason = "menu is full"
	default:
		check.OK = true
	}
	return check, nil
}

// CreateReservation takes spots atomically. If the user holds a live
// waitlist entry for the menu it is consumed: confirming the reservation is
// how a notified user converts their invitation, first-to-confirm wins.
func (s *ReservationService) CreateReservation(ctx context.Context, menuID, userID int64, quantity int, notes string) (*model.Reservation, error) {
	if quantity < 1 {
		return nil, validationErrorf("quantity must be at least 1")
	}

	var reservation *model.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		menu, err := s.menuRepo.GetMenuByIDForUpdate(ctx, tx, menuID)
		if err != nil {
			return err
		}
		if !menu.Active {
			return ErrMenuInactive
		}
		if time.Now().After(menu.ReservationDeadline) {
			return ErrDeadlinePassed
		}
		if menu.MaxReservations != nil && menu.CurrentReservations+quantity > *menu.MaxReservations {
			return &CapacityExceededError{
				MenuID:         menuID,
				Requested:      quantity,
				SpotsAvailable: *menu.MaxReservations - menu.CurrentReservations,
			}
		}

		exists, err := s.menuRepo.HasActiveReservation(ctx, tx, menuID, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReservation
		}

		if err := s.menuRepo.AdjustReservedCount(ctx, tx, menuID, quantity); err != nil {
			return err
		}

		reservation = &model.Reservation{
			MenuID:           menuID,
			UserID:           userID,
			Quantity:         quantity,
			TotalAmountCents: menu.PriceCents * int64(quantity),
			Status:           model.ReservationStatusPending,
			Notes:            notes,
		}
		if err := s.menuRepo.CreateReservation(ctx, tx, reservation); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		// Close any waitlist entry this reservation converts.
		if _, err := s.menuRepo.CancelWaitlistEntries(ctx, tx, menuID, userID); err != nil {
			return fmt.Errorf("consume waitlist entry: %w", err)
		}

		return s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
			model.EventReservationCreated, fmt.Sprintf("menu-%d-user-%d", menuID, userID),
			map[string]interface{}{
				"menu_id":  menuID,
				"user_id":  userID,
				"quantity": quantity,
			})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ReservationService] reservation created: menuID=%d, userID=%d, qty=%d", menuID, userID, quantity)
	return reservation, nil
}

// CancelReservation frees the spots before the deadline. Delivered or
// already cancelled reservations cannot be cancelled.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, userID int64, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reservation, err := s.menuRepo.GetReservationByID(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if userID != 0 && reservation.UserID != userID {
			return validationErrorf("reservation %d does not belong to user %d", reservationID, userID)
		}
		if reservation.Status == model.ReservationStatusCancelled ||
			reservation.Status == model.ReservationStatusDelivered {
			return &StateTransitionError{From: reservation.Status, To: model.ReservationStatusCancelled}
		}

		menu, err := s.menuRepo.GetMenuByIDForUpdate(ctx, tx, reservation.MenuID)
		if err != nil {
			return err
		}
		if time.Now().After(menu.ReservationDeadline) {
			return ErrDeadlinePassed
		}

		now := time.Now()
		err = s.menuRepo.UpdateReservationStatus(ctx, tx, reservationID, reservation.Status, map[string]interface{}{
			"status":              model.ReservationStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        &now,
		})
		if err != nil {
			return err
		}

		return s.menuRepo.AdjustReservedCount(ctx, tx, reservation.MenuID, -reservation.Quantity)
	})
}

// ConfirmReservation moves pending -> confirmed.
func (s *ReservationService) ConfirmReservation(ctx context.Context, reservationID int64) error {
	return s.transitionReservation(ctx, reservationID,
		model.ReservationStatusPending, model.ReservationStatusConfirmed, "confirmed_at")
}

// DeliverReservation moves confirmed -> delivered.
func (s *ReservationService) DeliverReservation(ctx context.Context, reservationID int64) error {
	return s.transitionReservation(ctx, reservationID,
		model.ReservationStatusConfirmed, model.ReservationStatusDelivered, "delivered_at")
}

func (s *ReservationService) transitionReservation(ctx context.Context, reservationID int64, from, to, stampField string) error {
	reservation, err := s.menuRepo.GetReservationByID(ctx, nil, reservationID)
	if err != nil {
		return err
	}
	if reservation.Status != from {
		return &StateTransitionError{From: reservation.Status, To: to}
	}
	now := time.Now()
	return s.menuRepo.UpdateReservationStatus(ctx, nil, reservationID, from, map[string]interface{}{
		"status":   to,
		stampField: &now,
	})
}

// CapacityUpdate reports what a capacity raise unlocked.
type CapacityUpdate struct {
	Menu              *model.Menu            `json:"menu"`
	NewSpotsAvailable int                    `json:"new_spots_available"`
	Notified          []*model.WaitlistEntry `json:"notified"`
}

// UpdateCapacity changes max_reservations and, when the raise frees spots,
// promotes the longest-waiting entries in the same transaction. Promotion
// marks them notified; it never reserves on their behalf.
func (s *ReservationService) UpdateCapacity(ctx context.Context, menuID int64, newMax int) (*CapacityUpdate, error) {
	if newMax < 1 {
		return nil, validationErrorf("max reservations must be at least 1")
	}

	var update *CapacityUpdate
	err := s.db.Transaction(func(tx *gorm.DB) error {
		menu, err := s.menuRepo.GetMenuByIDForUpdate(ctx, tx, menuID)
		if err != nil {
			return err
		}
		if newMax < menu.CurrentReservations {
			return validationErrorf("new capacity %d is below current reservations %d", newMax, menu.CurrentReservations)
		}

		if err := s.menuRepo.UpdateMenu(ctx, tx, menuID, map[string]interface{}{
			"max_reservations": newMax,
		}); err != nil {
			return err
		}
		menu.MaxReservations = &newMax

		spots := newMax - menu.CurrentReservations
		update = &CapacityUpdate{Menu: menu, NewSpotsAvailable: spots}
		if spots <= 0 {
			return nil
		}

		notified, err := s.promoteWaitlist(ctx, tx, menu, spots)
		if err != nil {
			return err
		}
		update.Notified = notified
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ReservationService] capacity updated: menuID=%d, newMax=%d, notified=%d",
		menuID, newMax, len(update.Notified))
	return update, nil
}

// promoteWaitlist pops up to spots waiting entries FIFO, marks each notified
// and emits one promotion event per entry. Runs under the menu row lock.
func (s *ReservationService) promoteWaitlist(ctx context.Context, tx *gorm.DB, menu *model.Menu, spots int) ([]*model.WaitlistEntry, error) {
	entries, err := s.menuRepo.WaitingEntries(ctx, tx, menu.ID, spots)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}

	notified := make([]*model.WaitlistEntry, 0, len(entries))
	for _, entry := range entries {
		if err := s.menuRepo.MarkNotified(ctx, tx, entry.ID); err != nil {
			return nil, fmt.Errorf("mark entry %d notified: %w", entry.ID, err)
		}
		err = s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
			model.EventWaitlistPromoted, fmt.Sprintf("menu-%d-user-%d", menu.ID, entry.UserID),
			map[string]interface{}{
				"menu_id":   menu.ID,
				"menu_date": menu.MenuDate,
				"user_id":   entry.UserID,
				"quantity":  entry.Quantity,
			})
		if err != nil {
			return nil, err
		}
		entry.Status = model.WaitlistStatusNotified
		notified = append(notified, entry)
	}
	return notified, nil
}

// JoinWaitlist queues the user for a full menu.
func (s *ReservationService) JoinWaitlist(ctx context.Context, menuID, userID int64, quantity int) (*model.WaitlistEntry, error) {
	if quantity < 1 {
		return nil, validationErrorf("quantity must be at least 1")
	}

	var entry *model.WaitlistEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		menu, err := s.menuRepo.GetMenuByIDForUpdate(ctx, tx, menuID)
		if err != nil {
			return err
		}
		if !menu.Active {
			return ErrMenuInactive
		}
		if time.Now().After(menu.ReservationDeadline) {
			return ErrDeadlinePassed
		}
		if !menu.Full() {
			return validationErrorf("menu still has capacity, reserve directly")
		}

		hasReservation, err := s.menuRepo.HasActiveReservation(ctx, tx, menuID, userID)
		if err != nil {
			return err
		}
		if hasReservation {
			return ErrDuplicateReservation
		}
		onWaitlist, err := s.menuRepo.UserOnWaitlist(ctx, tx, menuID, userID)
		if err != nil {
			return err
		}
		if onWaitlist {
			return ErrAlreadyOnWaitlist
		}

		entry = &model.WaitlistEntry{
			MenuID:   menuID,
			UserID:   userID,
			Quantity: quantity,
			Status:   model.WaitlistStatusWaiting,
		}
		return s.menuRepo.CreateWaitlistEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LeaveWaitlist cancels the user's live entries on the menu.
func (s *ReservationService) LeaveWaitlist(ctx context.Context, menuID, userID int64) error {
	affected, err := s.menuRepo.CancelWaitlistEntries(ctx, nil, menuID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrWaitlistEntryNotFound
	}
	return nil
}

// ExpireNotifications sweeps stale invitations: notified entries older than
// the configured TTL are cancelled, and the spots they held open are
// re-offered to the next waiting entries. Returns how many expired.
func (s *ReservationService) ExpireNotifications(ctx context.Context, batchSize int) (int, error) {
	ttl := time.Duration(s.cfg.Business.WaitlistNotifyTTLHours) * time.Hour
	cutoff := time.Now().Add(-ttl)

	stale, err := s.menuRepo.ExpiredNotifications(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	menuIDs := make(map[int64]bool)
	for _, entry := range stale {
		if err := s.menuRepo.ExpireNotification(ctx, nil, entry.ID); err != nil {
			log.Printf("[ReservationService] expire entry %d: %v", entry.ID, err)
			continue
		}
		expired++
		menuIDs[entry.MenuID] = true
	}

	// Re-offer the freed invitations menu by menu.
	for menuID := range menuIDs {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			menu, err := s.menuRepo.GetMenuByIDForUpdate(ctx, tx, menuID)
			if err != nil {
				return err
			}
			spots := menu.SpotsAvailable()
			if spots <= 0 {
				return nil
			}
			_, err = s.promoteWaitlist(ctx, tx, menu, spots)
			return err
		})
		if err != nil {
			log.Printf("[ReservationService] re-promote menu %d: %v", menuID, err)
		}
	}
	return expired, nil
}

func (s *ReservationService) ListReservations(ctx context.Context, menuID int64) ([]*model.Reservation, error) {
	return s.menuRepo.ListReservations(ctx, menuID)
}

func (s *ReservationService) ListUserReservations(ctx context.Context, userID int64, limit int) ([]*model.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.menuRepo.ListUserReservations(ctx, userID, limit)
}
