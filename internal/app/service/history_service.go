package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/pkg/retry"
	"portfolio_tracker/pkg/metrics"

	"golang.org/x/time/rate"
)

// HistoryService fetches price history trends one key at a time. The history
// endpoint is rate-limited far harder than the batch price one, so requests
// are paced sequentially instead of fanned out, and keys that are not on
// screen yet are parked as pending until someone expands them.
type HistoryService struct {
	oracle port.HistoryOracle
	store  *store.Store
	logger port.Logger

	limiter      *rate.Limiter
	requestDelay time.Duration
	spanDays     int
	trendPoints  int
	retryCfg     retry.Config

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(
	oracle port.HistoryOracle,
	st *store.Store,
	l port.Logger,
	requestsPerSecond float64,
	requestDelay time.Duration,
	spanDays int,
	trendPoints int,
	retryCfg retry.Config,
) *HistoryService {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if spanDays <= 0 {
		spanDays = 7
	}
	if trendPoints <= 0 {
		trendPoints = 7
	}
	return &HistoryService{
		oracle:       oracle,
		store:        st,
		logger:       l,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		requestDelay: requestDelay,
		spanDays:     spanDays,
		trendPoints:  trendPoints,
		retryCfg:     retryCfg,
	}
}

// FetchHistories fetches trends for the visible keys sequentially and parks
// the deferred ones as pending. The keys actually fetched are claimed under
// a fresh epoch, so a newer cycle over the same keys invalidates everything
// still in flight here without touching unrelated keys.
func (s *HistoryService) FetchHistories(ctx context.Context, visible, deferred []string) {
	for _, key := range deferred {
		s.store.MarkHistoryPending(key)
	}

	toFetch := make([]string, 0, len(visible))
	for _, key := range visible {
		if entry, ok := s.store.History(key); ok && entry.Status == store.StatusSuccess {
			continue
		}
		toFetch = append(toFetch, key)
	}
	if len(toFetch) == 0 {
		return
	}

	epoch := s.store.BeginHistoryEpoch(toFetch)
	for _, key := range toFetch {
		if ctx.Err() != nil {
			return
		}
		s.store.MarkHistoryLoading(epoch, key)
		s.fetchOne(ctx, epoch, key)
		if s.requestDelay > 0 {
			select {
			case <-time.After(s.requestDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Expand promotes one pending key and fetches its trend. Keys that already
// resolved are left alone.
func (s *HistoryService) Expand(ctx context.Context, key string) {
	if entry, ok := s.store.History(key); ok && entry.Status == store.StatusSuccess {
		return
	}
	epoch := s.store.BeginHistoryEpoch([]string{key})
	s.store.MarkHistoryLoading(epoch, key)
	s.fetchOne(ctx, epoch, key)
}

// fetchOne performs one paced history fetch, records the outcome, and queues
// a background retry on failure.
func (s *HistoryService) fetchOne(ctx context.Context, epoch uint64, key string) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	points, err := s.oracle.QueryHistory(ctx, key, s.spanDays)
	if err != nil || len(points) == 0 {
		if err == nil {
			err = fmt.Errorf("empty history for %s", key)
		}
		metrics.HistoryFetchTotal.WithLabelValues("failure").Inc()
		s.logger.Warn("History fetch failed", "key", key, "error", err)
		s.store.MarkHistoryFailed(epoch, key)
		s.retryInBackground(context.WithoutCancel(ctx), epoch, key)
		return
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	trend := DecimateTrend(prices, s.trendPoints)
	metrics.HistoryFetchTotal.WithLabelValues("success").Inc()
	s.store.SetHistory(epoch, key, trend, ChangePercent(trend))
}

// retryInBackground retries one failed key with backoff. A key already under
// retry is not claimed twice.
func (s *HistoryService) retryInBackground(ctx context.Context, epoch uint64, key string) {
	s.inflightMu.Lock()
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	if _, busy := s.inflight[key]; busy {
		s.inflightMu.Unlock()
		return
	}
	s.inflight[key] = struct{}{}
	s.inflightMu.Unlock()

	go func() {
		defer func() {
			s.inflightMu.Lock()
			delete(s.inflight, key)
			s.inflightMu.Unlock()
		}()

		err := retry.Do(ctx, s.retryCfg, func(ctx context.Context, attempt int) error {
			if !s.store.OwnsHistory(epoch, key) {
				// A newer cycle claimed this key.
				return nil
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}

			points, err := s.oracle.QueryHistory(ctx, key, s.spanDays)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				return fmt.Errorf("empty history for %s", key)
			}

			prices := make([]float64, len(points))
			for i, p := range points {
				prices[i] = p.Price
			}
			trend := DecimateTrend(prices, s.trendPoints)
			s.store.SetHistory(epoch, key, trend, ChangePercent(trend))
			return nil
		})
		if err != nil {
			s.logger.Warn("History retry gave up", "key", key, "error", err)
		}
	}()
}

// DecimateTrend reduces a price series to at most target evenly spaced
// samples, always keeping the first and last point. Series already at or
// under the target are returned unchanged.
func DecimateTrend(prices []float64, target int) []float64 {
	if target <= 0 || len(prices) <= target {
		return prices
	}

	out := make([]float64, target)
	for i := 0; i < target; i++ {
		idx := int(math.Round(float64(i) * float64(len(prices)-1) / float64(target-1)))
		out[i] = prices[idx]
	}
	return out
}

// ChangePercent is the percentage move from the first trend point to the
// last. A zero or missing first point yields 0 rather than a division blowup.
func ChangePercent(trend []float64) float64 {
	if len(trend) == 0 {
		return 0
	}
	first, last := trend[0], trend[len(trend)-1]
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}
