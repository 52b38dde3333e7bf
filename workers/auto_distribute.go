package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"tournament-rewards-system/services"

	"github.com/go-co-op/gocron/v2"
)

// AutoDistributeWorker periodically distributes rewards for completed
// tournaments flagged auto_distribute. Distribution is idempotent and
// serialized by the tournament row lock, so the poll is safe to overlap
// with manual distribution or an interrupted earlier run.
type AutoDistributeWorker struct {
	rewards  *services.RewardService
	interval time.Duration
	sched    gocron.Scheduler
}

func NewAutoDistributeWorker(rewards *services.RewardService, interval time.Duration) *AutoDistributeWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AutoDistributeWorker{rewards: rewards, interval: interval}
}

func (w *AutoDistributeWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	if _, err := sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(ctx) }),
	); err != nil {
		return err
	}

	sched.Start()
	log.Printf("✅ Auto-distribute worker running (every %s)", w.interval)
	return nil
}

func (w *AutoDistributeWorker) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}

// RunOnce scans for distributable tournaments and processes each one.
func (w *AutoDistributeWorker) RunOnce(ctx context.Context) {
	tournaments, err := w.rewards.Store.CompletedAutoDistributeTournaments(ctx)
	if err != nil {
		log.Printf("[AutoDistribute] DB error: %v", err)
		return
	}

	for _, t := range tournaments {
		summary, err := w.rewards.DistributeRewards(ctx, t.ID, false, "scheduler")
		if err != nil {
			// The bracket service may not have pushed standings yet; try
			// again on the next tick.
			if errors.Is(err, services.ErrNoStandings) {
				continue
			}
			log.Printf("[AutoDistribute] tournament %s failed: %v", t.ID, err)
			continue
		}
		if summary.RewardsDistributedCount > 0 {
			log.Printf("✅ [AutoDistribute] tournament %s: %d participants rewarded", t.ID, summary.RewardsDistributedCount)
		}
	}
}
