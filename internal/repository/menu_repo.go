package repository

import (
	"context"
	"errors"
	"time"

	"cantina/internal/model"

	"gorm.io/gorm"
)

type MenuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) CreateMenu(ctx context.Context, menu *model.Menu) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Menu{}).
		Where("menu_date = ?", menu.MenuDate).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateMenuDate
	}
	return r.db.WithContext(ctx).Create(menu).Error
}

func (r *MenuRepository) GetMenuByID(ctx context.Context, id int64) (*model.Menu, error) {
	var menu model.Menu
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&menu).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}
	return &menu, nil
}

// GetMenuByIDForUpdate locks the menu row. The capacity counter is only
// read or written under this lock, inside the same transaction as the
// reservation insert it gates.
func (r *MenuRepository) GetMenuByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Menu, error) {
	var menu model.Menu
	err := forUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&menu).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}
	return &menu, nil
}

func (r *MenuRepository) GetMenuByDate(ctx context.Context, date time.Time) (*model.Menu, error) {
	var menu model.Menu
	err := r.db.WithContext(ctx).Where("menu_date = ?", date).First(&menu).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}
	return &menu, nil
}

func (r *MenuRepository) ListMenus(ctx context.Context, from, to time.Time, onlyActive bool) ([]*model.Menu, error) {
	query := r.db.WithContext(ctx).
		Where("menu_date >= ? AND menu_date < ?", from, to)
	if onlyActive {
		query = query.Where("active = ?", true)
	}
	var menus []*model.Menu
	err := query.Order("menu_date ASC").Find(&menus).Error
	return menus, err
}

func (r *MenuRepository) UpdateMenu(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Menu{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMenuNotFound
	}
	return nil
}

// AdjustReservedCount applies delta to current_reservations. The WHERE
// clause enforces 0 <= counter <= max_reservations at the database level;
// RowsAffected == 0 means the capacity invariant would have broken.
func (r *MenuRepository) AdjustReservedCount(ctx context.Context, tx *gorm.DB, menuID int64, delta int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Menu{}).
		Where("id = ? AND current_reservations + ? >= 0", menuID, delta).
		Where("max_reservations IS NULL OR current_reservations + ? <= max_reservations", delta).
		Update("current_reservations", gorm.Expr("current_reservations + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

func (r *MenuRepository) CreateReservation(ctx context.Context, tx *gorm.DB, reservation *model.Reservation) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(reservation).Error
}

func (r *MenuRepository) GetReservationByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Reservation, error) {
	if tx == nil {
		tx = r.db
	}
	var reservation model.Reservation
	err := tx.WithContext(ctx).Where("id = ?", id).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// HasActiveReservation reports whether the user already holds a
// non-cancelled reservation on the menu. Checked under the menu row lock.
func (r *MenuRepository) HasActiveReservation(ctx context.Context, tx *gorm.DB, menuID, userID int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("menu_id = ? AND user_id = ? AND status <> ?", menuID, userID, model.ReservationStatusCancelled).
		Count(&count).Error
	return count > 0, err
}

// UpdateReservationStatus is a guarded transition, same shape as the order
// status machine.
func (r *MenuRepository) UpdateReservationStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus string, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (r *MenuRepository) ListReservations(ctx context.Context, menuID int64) ([]*model.Reservation, error) {
	var reservations []*model.Reservation
	err := r.db.WithContext(ctx).
		Where("menu_id = ?", menuID).
		Order("created_at ASC").
		Find(&reservations).Error
	return reservations, err
}

func (r *MenuRepository) ListUserReservations(ctx context.Context, userID int64, limit int) ([]*model.Reservation, error) {
	var reservations []*model.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reservations).Error
	return reservations, err
}

func (r *MenuRepository) CreateWaitlistEntry(ctx context.Context, tx *gorm.DB, entry *model.WaitlistEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *MenuRepository) GetWaitlistEntryByID(ctx context.Context, tx *gorm.DB, id int64) (*model.WaitlistEntry, error) {
	if tx == nil {
		tx = r.db
	}
	var entry model.WaitlistEntry
	err := tx.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWaitlistEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// UserOnWaitlist reports whether the user already has a live entry
// (waiting or notified) for the menu.
func (r *MenuRepository) UserOnWaitlist(ctx context.Context, tx *gorm.DB, menuID, userID int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("menu_id = ? AND user_id = ? AND status IN ?",
			menuID, userID, []string{model.WaitlistStatusWaiting, model.WaitlistStatusNotified}).
		Count(&count).Error
	return count > 0, err
}

// WaitingEntries returns up to limit entries in FIFO (creation) order.
// Cancelled entries are skipped permanently.
func (r *MenuRepository) WaitingEntries(ctx context.Context, tx *gorm.DB, menuID int64, limit int) ([]*model.WaitlistEntry, error) {
	if tx == nil {
		tx = r.db
	}
	var entries []*model.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("menu_id = ? AND status = ?", menuID, model.WaitlistStatusWaiting).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// MarkNotified is a guarded waiting -> notified transition.
func (r *MenuRepository) MarkNotified(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, model.WaitlistStatusWaiting).
		Updates(map[string]interface{}{
			"status":      model.WaitlistStatusNotified,
			"notified_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// CancelWaitlistEntries closes every live entry the user holds on the menu.
// Used both for explicit leave and when the user converts to a reservation.
func (r *MenuRepository) CancelWaitlistEntries(ctx context.Context, tx *gorm.DB, menuID, userID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("menu_id = ? AND user_id = ? AND status IN ?",
			menuID, userID, []string{model.WaitlistStatusWaiting, model.WaitlistStatusNotified}).
		Update("status", model.WaitlistStatusCancelled)
	return result.RowsAffected, result.Error
}

// ExpiredNotifications returns notified entries whose invitation is older
// than the cutoff and was never converted.
func (r *MenuRepository) ExpiredNotifications(ctx context.Context, cutoff time.Time, limit int) ([]*model.WaitlistEntry, error) {
	var entries []*model.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND notified_at < ?", model.WaitlistStatusNotified, cutoff).
		Order("notified_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ExpireNotification is a guarded notified -> cancelled transition.
func (r *MenuRepository) ExpireNotification(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, model.WaitlistStatusNotified).
		Update("status", model.WaitlistStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// MenuDemand is the per-menu aggregate for demand reports.
type MenuDemand struct {
	MenuID           int64     `json:"menu_id"`
	MenuDate         time.Time `json:"menu_date"`
	ReservedQuantity int64     `json:"reserved_quantity"`
	WaitingCount     int64     `json:"waiting_count"`
}

func (r *MenuRepository) DemandByDateRange(ctx context.Context, from, to time.Time) ([]*MenuDemand, error) {
	var demand []*MenuDemand
	err := r.db.WithContext(ctx).
		Model(&model.Menu{}).
		Select(
			"weekly_menus.id AS menu_id, weekly_menus.menu_date AS menu_date, "+
				"COALESCE(SUM(CASE WHEN menu_reservations.status <> ? THEN menu_reservations.quantity ELSE 0 END), 0) AS reserved_quantity, "+
				"COALESCE(SUM(CASE WHEN menu_waitlist.status = ? THEN 1 ELSE 0 END), 0) AS waiting_count",
			model.ReservationStatusCancelled, model.WaitlistStatusWaiting,
		).
		Joins("LEFT JOIN menu_reservations ON menu_reservations.menu_id = weekly_menus.id").
		Joins("LEFT JOIN menu_waitlist ON menu_waitlist.menu_id = weekly_menus.id").
		Where("weekly_menus.menu_date >= ? AND weekly_menus.menu_date < ?", from, to).
		Group("weekly_menus.id, weekly_menus.menu_date").
		Order("weekly_menus.menu_date ASC").
		Scan(&demand).Error
	return demand, err
}
