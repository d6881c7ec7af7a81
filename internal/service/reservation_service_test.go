package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cantina/internal/model"
	"cantina/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestCreateReservation(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 0)

	reservation, err := svc.CreateReservation(ctx, menu.ID, 1, 2, "sin ají")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, reservation.Status)
	assert.Equal(t, int64(2400), reservation.TotalAmountCents)

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentReservations)
	assert.Equal(t, 28, got.SpotsAvailable())

	assert.Equal(t, int64(1), countOutboxEvents(t, db, model.EventReservationCreated))
}

func TestCreateReservation_Duplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 0)

	_, err := svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	require.NoError(t, err)

	_, err = svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	assert.ErrorIs(t, err, ErrDuplicateReservation)

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentReservations)
}

func TestCreateReservation_CapacityExceeded(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(10), 8)

	_, err := svc.CreateReservation(ctx, menu.ID, 1, 3, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.SpotsAvailable)

	// the two remaining spots can still be taken
	_, err = svc.CreateReservation(ctx, menu.ID, 1, 2, "")
	require.NoError(t, err)
}

func TestCreateReservation_DeadlinePassed(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 0)
	require.NoError(t, db.Model(menu).
		Update("reservation_deadline", time.Now().Add(-time.Hour)).Error)

	_, err := svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	assert.ErrorIs(t, err, ErrDeadlinePassed)
}

func TestCreateReservation_InactiveMenu(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 0)
	require.NoError(t, svc.DeactivateMenu(ctx, menu.ID))

	_, err := svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	assert.ErrorIs(t, err, ErrMenuInactive)
}

func TestCreateReservation_UnboundedMenu(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, nil, 0)

	for userID := int64(1); userID <= 5; userID++ {
		_, err := svc.CreateReservation(ctx, menu.ID, userID, 10, "")
		require.NoError(t, err)
	}

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.CurrentReservations)
	assert.Equal(t, -1, got.SpotsAvailable())
	assert.False(t, got.Full())
}

func TestCancelReservation(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(10), 0)
	reservation, err := svc.CreateReservation(ctx, menu.ID, 1, 3, "")
	require.NoError(t, err)

	require.NoError(t, svc.CancelReservation(ctx, reservation.ID, 1, "viaje"))

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentReservations)

	// cancelling twice is refused
	err = svc.CancelReservation(ctx, reservation.ID, 1, "otra vez")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// the user can reserve again after cancelling
	_, err = svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	assert.NoError(t, err)
}

func TestCancelReservation_WrongUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(10), 0)
	reservation, err := svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	require.NoError(t, err)

	err = svc.CancelReservation(ctx, reservation.ID, 2, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReservationLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(10), 0)
	reservation, err := svc.CreateReservation(ctx, menu.ID, 1, 1, "")
	require.NoError(t, err)

	// confirmed before delivered
	err = svc.DeliverReservation(ctx, reservation.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	require.NoError(t, svc.ConfirmReservation(ctx, reservation.ID))
	require.NoError(t, svc.DeliverReservation(ctx, reservation.ID))

	// delivered reservations cannot be cancelled
	err = svc.CancelReservation(ctx, reservation.ID, 1, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestUpdateCapacity_PromotesWaitlistFIFO(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 30)

	base := time.Now().Add(-6 * time.Hour)
	for i := 0; i < 6; i++ {
		seedWaitlistEntry(t, db, menu.ID, int64(100+i), model.WaitlistStatusWaiting,
			base.Add(time.Duration(i)*time.Minute))
	}

	update, err := svc.UpdateCapacity(ctx, menu.ID, 35)
	require.NoError(t, err)
	assert.Equal(t, 5, update.NewSpotsAvailable)
	require.Len(t, update.Notified, 5)

	// the five longest-waiting users, in join order
	for i, entry := range update.Notified {
		assert.Equal(t, int64(100+i), entry.UserID)
		assert.Equal(t, model.WaitlistStatusNotified, entry.Status)
	}

	// the sixth stays waiting
	var sixth model.WaitlistEntry
	require.NoError(t, db.Where("menu_id = ? AND user_id = ?", menu.ID, 105).First(&sixth).Error)
	assert.Equal(t, model.WaitlistStatusWaiting, sixth.Status)

	assert.Equal(t, int64(5), countOutboxEvents(t, db, model.EventWaitlistPromoted))
}

func TestUpdateCapacity_BelowCurrentRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(30), 12)

	_, err := svc.UpdateCapacity(ctx, menu.ID, 10)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, *got.MaxReservations)
}

func TestJoinWaitlist(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	// not full yet: reserve directly instead
	menu := seedMenu(t, db, intPtr(2), 1)
	_, err := svc.JoinWaitlist(ctx, menu.ID, 1, 1)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, db.Model(menu).Update("current_reservations", 2).Error)

	entry, err := svc.JoinWaitlist(ctx, menu.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistStatusWaiting, entry.Status)

	_, err = svc.JoinWaitlist(ctx, menu.ID, 1, 1)
	assert.ErrorIs(t, err, ErrAlreadyOnWaitlist)

	require.NoError(t, svc.LeaveWaitlist(ctx, menu.ID, 1))
	err = svc.LeaveWaitlist(ctx, menu.ID, 1)
	assert.ErrorIs(t, err, repository.ErrWaitlistEntryNotFound)
}

func TestReservationConsumesWaitlistEntry(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(2), 2)
	entry := seedWaitlistEntry(t, db, menu.ID, 7, model.WaitlistStatusWaiting, time.Now().Add(-time.Hour))

	update, err := svc.UpdateCapacity(ctx, menu.ID, 3)
	require.NoError(t, err)
	require.Len(t, update.Notified, 1)

	_, err = svc.CreateReservation(ctx, menu.ID, 7, 1, "")
	require.NoError(t, err)

	var got model.WaitlistEntry
	require.NoError(t, db.First(&got, entry.ID).Error)
	assert.Equal(t, model.WaitlistStatusCancelled, got.Status)
}

func TestCreateReservation_ConcurrentLastSlot(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(1), 0)

	const attempts = 4
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.CreateReservation(ctx, menu.ID, userID, 1, "")
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, successes)

	got, err := svc.GetMenu(ctx, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentReservations)
}

func TestExpireNotifications(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menu := seedMenu(t, db, intPtr(3), 2)

	stale := seedWaitlistEntry(t, db, menu.ID, 1, model.WaitlistStatusNotified, time.Now().Add(-26*time.Hour))
	require.NoError(t, db.Model(stale).
		Update("notified_at", time.Now().Add(-25*time.Hour)).Error)
	next := seedWaitlistEntry(t, db, menu.ID, 2, model.WaitlistStatusWaiting, time.Now().Add(-2*time.Hour))

	expired, err := svc.ExpireNotifications(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	var gotStale, gotNext model.WaitlistEntry
	require.NoError(t, db.First(&gotStale, stale.ID).Error)
	require.NoError(t, db.First(&gotNext, next.ID).Error)
	assert.Equal(t, model.WaitlistStatusCancelled, gotStale.Status)
	assert.Equal(t, model.WaitlistStatusNotified, gotNext.Status)
	assert.NotNil(t, gotNext.NotifiedAt)

	// a fresh invitation survives the sweep
	expired, err = svc.ExpireNotifications(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestCreateMenu(t *testing.T) {
	db := newTestDB(t)
	svc := NewReservationService(db, testConfig())
	ctx := context.Background()

	menuDate := time.Now().AddDate(0, 0, 10).Truncate(24 * time.Hour)
	menu, err := svc.CreateMenu(ctx, &CreateMenuRequest{
		MenuDate:        menuDate,
		Description:     "arroz con pato",
		PriceCents:      1500,
		MaxReservations: intPtr(40),
	})
	require.NoError(t, err)
	assert.Equal(t, menuDate.Add(-48*time.Hour), menu.ReservationDeadline)
	assert.True(t, menu.Active)

	// same date again
	_, err = svc.CreateMenu(ctx, &CreateMenuRequest{
		MenuDate: menuDate, Description: "otro", PriceCents: 1000,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateMenuDate)

	// deadline after the menu date
	_, err = svc.CreateMenu(ctx, &CreateMenuRequest{
		MenuDate:            menuDate.AddDate(0, 0, 1),
		PriceCents:          1000,
		ReservationDeadline: menuDate.AddDate(0, 0, 2),
	})
	assert.ErrorIs(t, err, ErrValidation)
}
