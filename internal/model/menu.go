package model

import (
	"time"
)

// Menu is a dated pre-order menu with bounded capacity. MaxReservations nil
// means unbounded. Invariant: MaxReservations == nil or
// CurrentReservations <= *MaxReservations; the counter is only touched under
// a row lock inside the same transaction as the reservation write.
type Menu struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MenuDate            time.Time `gorm:"uniqueIndex;not null" json:"menu_date"`
	Description         string    `gorm:"type:varchar(256)" json:"description,omitempty"`
	PriceCents          int64     `gorm:"not null" json:"price_cents"`
	ReservationDeadline time.Time `gorm:"not null" json:"reservation_deadline"`
	MaxReservations     *int      `json:"max_reservations,omitempty"`
	CurrentReservations int       `gorm:"not null;default:0" json:"current_reservations"`
	Active              bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Menu) TableName() string {
	return "weekly_menus"
}

// SpotsAvailable is the free capacity, -1 when unbounded.
func (m *Menu) SpotsAvailable() int {
	if m.MaxReservations == nil {
		return -1
	}
	return *m.MaxReservations - m.CurrentReservations
}

// Full reports whether a bounded menu has no free spots left.
func (m *Menu) Full() bool {
	return m.MaxReservations != nil && m.CurrentReservations >= *m.MaxReservations
}

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusDelivered = "delivered"
	ReservationStatusCancelled = "cancelled"
)

// Reservation holds spots on one menu for one user. At most one
// non-cancelled reservation may exist per (user, menu) pair.
type Reservation struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MenuID             int64      `gorm:"index;not null" json:"menu_id"`
	UserID             int64      `gorm:"index;not null" json:"user_id"`
	Quantity           int        `gorm:"not null" json:"quantity"`
	TotalAmountCents   int64      `gorm:"not null" json:"total_amount_cents"`
	Status             string     `gorm:"type:varchar(20);index;not null" json:"status"`
	Notes              string     `gorm:"type:varchar(256)" json:"notes,omitempty"`
	CancellationReason string     `gorm:"type:varchar(256)" json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reservation) TableName() string {
	return "menu_reservations"
}

const (
	WaitlistStatusWaiting   = "waiting"
	WaitlistStatusNotified  = "notified"
	WaitlistStatusCancelled = "cancelled"
)

// WaitlistEntry queues a user for a full menu, FIFO by creation time.
// Promotion only notifies; it never reserves on the user's behalf. A
// notification expires if the user does not act before the configured TTL,
// freeing the invitation for the next entry in line.
type WaitlistEntry struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MenuID     int64      `gorm:"index;not null" json:"menu_id"`
	UserID     int64      `gorm:"index;not null" json:"user_id"`
	Quantity   int        `gorm:"not null" json:"quantity"`
	Status     string     `gorm:"type:varchar(20);index;not null" json:"status"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WaitlistEntry) TableName() string {
	return "menu_waitlist"
}
