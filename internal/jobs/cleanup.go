package jobs

import (
	"context"
	"log"
	"time"
)

// Pruner retire les records terminaux plus vieux que cutoff
type Pruner interface {
	PruneTerminal(cutoff time.Time) int
}

// CleanupService purge périodiquement les registres en mémoire des jobs
// et batchs terminaux expirés
type CleanupService struct {
	pruners  []Pruner
	interval time.Duration
	maxAge   time.Duration
	stopCh   chan struct{}
}

func NewCleanupService(interval, maxAge time.Duration, pruners ...Pruner) *CleanupService {
	return &CleanupService{
		pruners:  pruners,
		interval: interval,
		maxAge:   maxAge,
		stopCh:   make(chan struct{}),
	}
}

func (c *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Printf("Cleanup service started (interval: %v, max age: %v)", c.interval, c.maxAge)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup service stopped due to context cancellation")
			return
		case <-c.stopCh:
			log.Println("Cleanup service stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.maxAge)
			total := 0
			for _, p := range c.pruners {
				total += p.PruneTerminal(cutoff)
			}
			if total > 0 {
				log.Printf("Cleanup completed: %d records removed", total)
			}
		}
	}
}

func (c *CleanupService) Stop() {
	close(c.stopCh)
}
