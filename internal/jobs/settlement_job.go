package jobs

import (
	"log"
	"time"

	"investment-platform/internal/services"
)

// SettlementJob periodically advances active investments: progress,
// daily returns, and completion handoff into the commission calculator.
type SettlementJob struct {
	investments *services.InvestmentService
	interval    time.Duration
	stopChan    chan struct{}
}

// NewSettlementJob creates a new settlement sweep job
func NewSettlementJob(investments *services.InvestmentService, interval time.Duration) *SettlementJob {
	return &SettlementJob{
		investments: investments,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the settlement loop
func (j *SettlementJob) Start() {
	log.Printf("[Settlement] Starting settlement job (interval: %v)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on start
	j.runSweep()

	for {
		select {
		case <-ticker.C:
			j.runSweep()
		case <-j.stopChan:
			log.Println("[Settlement] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (j *SettlementJob) Stop() {
	close(j.stopChan)
}

func (j *SettlementJob) runSweep() {
	settled, err := j.investments.RunSettlementSweep(time.Now())
	if err != nil {
		log.Printf("[Settlement] Sweep error: %v", err)
		return
	}
	if settled > 0 {
		log.Printf("[Settlement] Settled %d investments", settled)
	}
}
