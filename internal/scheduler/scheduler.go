// Package scheduler runs the background badge sweep.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// BadgeSweeper awards badges for every completed tournament still waiting for them.
type BadgeSweeper interface {
	AwardCompletedTournaments(ctx context.Context) (int, error)
}

// StartBadgeSweep runs sweeper immediately and then every interval until ctx is
// cancelled. Runs never overlap: a slow sweep pushes the next one back.
// The caller should Shutdown the returned scheduler on exit.
func StartBadgeSweep(ctx context.Context, sweeper BadgeSweeper, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			awarded, err := sweeper.AwardCompletedTournaments(ctx)
			if err != nil {
				log.Printf("[Scheduler] badge sweep failed: %v", err)
				return
			}
			if awarded > 0 {
				log.Printf("[Scheduler] awarded badges for %d tournament(s)", awarded)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule badge sweep: %w", err)
	}

	sched.Start()
	return sched, nil
}
