package gitrepo

import (
	"context"
	"sync"

	"github.com/samber/lo"

	logger "gcm/internal/log"
	"gcm/internal/pipe"
)

const Queued CloneResult = "queued"

const poolChannelBufferLength = 10

// ClonePool runs clone tasks on a fixed number of workers. Clone only queues the task;
// Wait returns every outcome once the queue is drained.
type ClonePool struct {
	tasks     chan Repository
	collected chan []CloneOutcome
	closeOnce sync.Once
	outcomes  []CloneOutcome
}

func NewClonePool(ctx context.Context, cloner Cloner, workers int, ratePerSecond int) *ClonePool {
	workers = max(workers, 1)
	pool := &ClonePool{
		tasks:     make(chan Repository, poolChannelBufferLength),
		collected: make(chan []CloneOutcome, 1),
	}

	limited := pipe.RateLimit(ctx, pool.tasks, ratePerSecond, workers)
	workerOutcomes := make([]<-chan CloneOutcome, 0, workers)
	for i := 0; i < workers; i++ {
		outcomes := make(chan CloneOutcome)
		workerOutcomes = append(workerOutcomes, outcomes)
		go func() {
			defer close(outcomes)
			for repo := range limited {
				outcomes <- cloner.Clone(ctx, repo)
			}
		}()
	}

	go func() {
		var all []CloneOutcome
		for outcome := range lo.FanIn(poolChannelBufferLength, workerOutcomes...) {
			all = append(all, outcome)
		}
		pool.collected <- all
	}()

	logger.Log.Debugf("Started clone pool with %d workers", workers)
	return pool
}

func (pool *ClonePool) Clone(ctx context.Context, repo Repository) CloneOutcome {
	outcome := CloneOutcome{Task: CloneTask{Repository: repo}, Result: Queued}
	select {
	case pool.tasks <- repo:
	case <-ctx.Done():
		outcome.Result = Failed
		outcome.Err = ctx.Err()
	}
	return outcome
}

// Wait stops accepting tasks and blocks until all queued clones finished. Clone must not be
// called after Wait.
func (pool *ClonePool) Wait() []CloneOutcome {
	pool.closeOnce.Do(func() {
		close(pool.tasks)
		pool.outcomes = <-pool.collected
	})
	return pool.outcomes
}
