package jobs

import (
	"context"
	"log"
	"time"

	"investment-platform/internal/services"
)

// PaymentCheckJob polls the payment provider for unresolved PIX
// transactions and expires unpaid deposits.
type PaymentCheckJob struct {
	pixService *services.PixService
	interval   time.Duration
	stopChan   chan struct{}
}

// NewPaymentCheckJob creates a new payment check job
func NewPaymentCheckJob(pixService *services.PixService, interval time.Duration) *PaymentCheckJob {
	return &PaymentCheckJob{
		pixService: pixService,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the payment check loop
func (j *PaymentCheckJob) Start() {
	log.Printf("[PaymentCheck] Starting payment check job (interval: %v)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runCheck()
		case <-j.stopChan:
			log.Println("[PaymentCheck] Stopping payment check job")
			return
		}
	}
}

// Stop stops the payment check loop
func (j *PaymentCheckJob) Stop() {
	close(j.stopChan)
}

func (j *PaymentCheckJob) runCheck() {
	ctx := context.Background()

	j.pixService.CheckPendingWithProvider(ctx)

	expired, deleted, err := j.pixService.RunExpirySweep(time.Now())
	if err != nil {
		log.Printf("[PaymentCheck] Expiry sweep error: %v", err)
		return
	}
	if expired > 0 || deleted > 0 {
		log.Printf("[PaymentCheck] Expired %d deposits, cleaned up %d old transactions", expired, deleted)
	}
}
