package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"floorwatch/internal/engine"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/rarity"
	"floorwatch/internal/scheduler"
)

// RateProvider yields the current spot conversion rate, or nil when
// unavailable.
type RateProvider interface {
	Spot(ctx context.Context) *float64
}

// Service orchestrates one poll cycle: fetch the per-rarity cheapest items
// concurrently, enrich them concurrently, then run the sequential
// floor/alert decision pass. Failures in one rarity never abort the others.
type Service struct {
	scheduler *scheduler.Scheduler
	market    *marketplace.Client
	resolver  *marketplace.Resolver
	rates     RateProvider
	engine    *engine.Engine
	logger    zerolog.Logger
}

// New constructs the watcher service.
func New(sched *scheduler.Scheduler, market *marketplace.Client, resolver *marketplace.Resolver, rates RateProvider, eng *engine.Engine, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		market:    market,
		resolver:  resolver,
		rates:     rates,
		engine:    eng,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the poll loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick executes one poll cycle.
func (s *Service) ProcessTick(ctx context.Context, tick int64) error {
	rate := s.rates.Spot(ctx)
	if rate != nil {
		s.logger.Info().Int64("tick", tick).Float64("rate", *rate).Msg("spot rate fetched")
	} else {
		s.logger.Info().Int64("tick", tick).Msg("spot rate unavailable, floor rules will no-op this cycle")
	}

	raws := s.fetchCheapest(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info().Int64("tick", tick).Int("items", len(raws)).Msg("cheapest items fetched")

	items := s.enrichAll(ctx, raws, rate)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, item := range items {
		if err := s.engine.EvaluateItem(ctx, tick, item); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Str("rarity", item.Rarity).Msg("evaluation failed for rarity")
		}
	}
	return nil
}

// fetchCheapest queries all rarities concurrently and joins before
// returning. A failed query contributes nothing rather than an error.
func (s *Service) fetchCheapest(ctx context.Context) []marketplace.RawItem {
	tiers := rarity.All()
	results := make([]marketplace.RawItem, len(tiers))

	var wg sync.WaitGroup
	for i, tier := range tiers {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			item, err := s.market.CheapestByRarity(ctx, name)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn().Err(err).Str("rarity", name).Msg("cheapest query failed")
				}
				return
			}
			results[idx] = item
		}(i, tier.String())
	}
	wg.Wait()

	raws := make([]marketplace.RawItem, 0, len(results))
	for _, raw := range results {
		if raw != nil {
			raws = append(raws, raw)
		}
	}
	return raws
}

// enrichAll builds canonical items concurrently and joins before the
// decision pass, so the pass itself runs race-free over plain values.
func (s *Service) enrichAll(ctx context.Context, raws []marketplace.RawItem, rate *float64) []marketplace.Item {
	items := make([]marketplace.Item, len(raws))

	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		go func(idx int, raw marketplace.RawItem) {
			defer wg.Done()
			items[idx] = s.market.Enrich(ctx, s.resolver, raw, rate)
		}(i, raw)
	}
	wg.Wait()

	return items
}
