package job

import (
	"context"
	"log"
	"time"

	"cantina/internal/config"
	"cantina/internal/service"

	"gorm.io/gorm"
)

// WaitlistSweepJob expires stale waitlist invitations. A notified user who
// never converts within the TTL loses the invitation, and the next waiting
// entry gets its turn.
type WaitlistSweepJob struct {
	reservationSvc *service.ReservationService
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewWaitlistSweepJob(db *gorm.DB, cfg *config.Config) *WaitlistSweepJob {
	return &WaitlistSweepJob{
		reservationSvc: service.NewReservationService(db, cfg),
		stopCh:         make(chan struct{}),
		interval:       time.Minute,
		batchSize:      100,
	}
}

func (j *WaitlistSweepJob) Start(ctx context.Context) {
	log.Println("[WaitlistSweepJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[WaitlistSweepJob] context cancelled, exiting")
			return
		case <-j.stopCh:
			log.Println("[WaitlistSweepJob] stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *WaitlistSweepJob) Stop() {
	close(j.stopCh)
}

func (j *WaitlistSweepJob) sweep(ctx context.Context) {
	expired, err := j.reservationSvc.ExpireNotifications(ctx, j.batchSize)
	if err != nil {
		log.Printf("[WaitlistSweepJob] sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[WaitlistSweepJob] expired %d stale invitations", expired)
	}
}
