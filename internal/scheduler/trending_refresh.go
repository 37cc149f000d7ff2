package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

// TrendingFetcher is the action the refresher runs.
type TrendingFetcher interface {
	GetTrendingCommunities(ctx context.Context) ([]domain.CommunityView, error)
}

// TrendingRefresher keeps the cached trending list fresh, on a ticker and on
// manual triggers.
type TrendingRefresher struct {
	fetcher       TrendingFetcher
	logger        logger.Logger
	interval      time.Duration
	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

// NewTrendingRefresher creates a refresher. manualTrigger may be shared with
// the HTTP layer; sends on it should not block.
func NewTrendingRefresher(
	fetcher TrendingFetcher,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *TrendingRefresher {
	return &TrendingRefresher{
		fetcher:       fetcher,
		logger:        log,
		interval:      interval,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start refreshes once, then keeps refreshing in the background until Stop or
// ctx ends. A failed first refresh is logged: running without a session, or
// with the instance down, is a valid state.
func (tr *TrendingRefresher) Start(ctx context.Context) {
	tr.refresh(ctx, "startup")

	ticker := time.NewTicker(tr.interval)
	go func() {
		defer close(tr.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tr.refresh(ctx, "interval")
			case <-tr.manualTrigger:
				tr.logger.Info("manual trending refresh triggered")
				tr.refresh(ctx, "manual")
			case <-tr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the refresher and waits for the running refresh to end.
// It must only be called after Start.
func (tr *TrendingRefresher) Stop() {
	tr.stopOnce.Do(func() { close(tr.stopCh) })
	<-tr.done
}

func (tr *TrendingRefresher) refresh(ctx context.Context, reason string) {
	start := time.Now()
	list, err := tr.fetcher.GetTrendingCommunities(ctx)
	if err != nil {
		tr.logger.Error("failed to refresh trending communities",
			logger.String("reason", reason),
			logger.Error(err))
		return
	}
	if list == nil {
		tr.logger.Debug("no active session, trending refresh skipped",
			logger.String("reason", reason))
		return
	}
	tr.logger.Info("trending communities refreshed",
		logger.String("reason", reason),
		logger.Int("count", len(list)),
		logger.Duration("took", time.Since(start)))
}
