// Package engine holds the floor-tracking and alert decision logic: one
// decision pass per (rarity, cheapest-item, tick) triple.
package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"floorwatch/internal/alerting"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/rarity"
	"floorwatch/internal/storage"
)

// Engine applies the alert, bootstrap, and periodic-refresh rules against
// the persistent floor state. It is the sole mutator of FloorRecord and
// NotificationRecord rows.
type Engine struct {
	floors       storage.FloorStore
	notified     storage.NotificationStore
	history      storage.HistoryStore
	notifier     alerting.Notifier
	logger       zerolog.Logger
	refreshEvery int64
}

// New constructs the engine. history and notifier may be nil; refreshEvery
// defaults to every third tick.
func New(floors storage.FloorStore, notified storage.NotificationStore, history storage.HistoryStore, notifier alerting.Notifier, refreshEvery int64, logger zerolog.Logger) *Engine {
	if refreshEvery <= 0 {
		refreshEvery = 3
	}
	return &Engine{
		floors:       floors,
		notified:     notified,
		history:      history,
		notifier:     notifier,
		logger:       logger.With().Str("component", "engine").Logger(),
		refreshEvery: refreshEvery,
	}
}

// EvaluateItem runs the decision sequence for one rarity's cheapest item.
// The three rules are independent: an alert, the first-tick bootstrap, and
// the periodic refresh may all fire on the same tick. Every rule is a no-op
// when the USD price is unavailable.
func (e *Engine) EvaluateItem(ctx context.Context, tick int64, item marketplace.Item) error {
	tier, ok := rarity.Parse(item.Rarity)
	if !ok {
		e.logger.Debug().Str("rarity", item.Rarity).Str("item", item.ItemID).Msg("skipping item outside the rarity set")
		return nil
	}
	if item.PriceUSD == nil {
		e.logger.Info().Str("rarity", tier.String()).Msg("usd price unavailable, skipping tick for rarity")
		return nil
	}
	priceUSD := *item.PriceUSD

	floor, err := e.floors.GetFloor(ctx, tier.String())
	if err != nil {
		return fmt.Errorf("get floor for %s: %w", tier, err)
	}
	threshold, err := e.floors.GetThreshold(ctx, tier.String())
	if err != nil {
		return fmt.Errorf("get threshold for %s: %w", tier, err)
	}

	if floor != nil && ShouldAlert(priceUSD, *floor, threshold) {
		e.logger.Info().
			Str("rarity", tier.String()).
			Float64("price_usd", Round2(priceUSD)).
			Float64("floor", Round2(*floor)).
			Float64("threshold_pct", threshold).
			Msg("price dropped below alert limit")
		if err := e.fireAlert(ctx, tier, item, priceUSD, *floor, threshold); err != nil {
			return err
		}
	}

	if tick == 1 {
		if err := e.floors.SetFloor(ctx, tier.String(), priceUSD); err != nil {
			return fmt.Errorf("bootstrap floor for %s: %w", tier, err)
		}
		e.logger.Info().Str("rarity", tier.String()).Float64("floor", Round2(priceUSD)).Msg("floor initialized")
	}

	if tick%e.refreshEvery == 0 {
		if err := e.floors.SetFloor(ctx, tier.String(), priceUSD); err != nil {
			return fmt.Errorf("refresh floor for %s: %w", tier, err)
		}
		e.logger.Info().Str("rarity", tier.String()).Float64("floor", Round2(priceUSD)).Msg("floor refreshed")
		if e.history != nil {
			if err := e.history.InsertFloorSample(ctx, storage.FloorSample{Rarity: tier.String(), Price: priceUSD}); err != nil {
				e.logger.Error().Err(err).Str("rarity", tier.String()).Msg("failed to record floor sample")
			}
		}
	}

	return nil
}

// fireAlert applies dedup, dispatches the notification, and commits the
// ratchet-down floor plus the dedup record. Delivery failure is logged but
// does not roll back state: alerts are at-least-once.
func (e *Engine) fireAlert(ctx context.Context, tier rarity.Rarity, item marketplace.Item, priceUSD, floor, threshold float64) error {
	if item.ItemID != "" {
		last, err := e.notified.GetLastAlertedPrice(ctx, item.ItemID)
		if err != nil {
			return fmt.Errorf("get last alerted price: %w", err)
		}
		if Suppress(last, priceUSD) {
			e.logger.Info().Str("item", item.ItemID).Float64("last", *last).Float64("price_usd", Round2(priceUSD)).Msg("alert suppressed, already alerted at equal or lower price")
			return nil
		}
	}

	if e.notifier != nil {
		alert := alerting.Alert{
			Item:         item,
			Rarity:       tier,
			PriceUSD:     priceUSD,
			FloorPrice:   floor,
			ThresholdPct: threshold,
		}
		if err := e.notifier.Notify(ctx, alert); err != nil {
			e.logger.Error().Err(err).Str("rarity", tier.String()).Msg("failed to dispatch alert")
		}
	}

	if err := e.floors.SetFloor(ctx, tier.String(), priceUSD); err != nil {
		return fmt.Errorf("ratchet floor for %s: %w", tier, err)
	}
	if item.ItemID != "" {
		if err := e.notified.SetLastAlertedPrice(ctx, item.ItemID, priceUSD); err != nil {
			return fmt.Errorf("record notification: %w", err)
		}
	}
	return nil
}

// ShouldAlert reports whether a price is at or below the alert limit for the
// stored floor and threshold. Both sides are rounded to cents first so float
// noise cannot flap the trigger.
func ShouldAlert(priceUSD, floor, thresholdPct float64) bool {
	return Round2(priceUSD) <= Round2(AlertLimit(floor, thresholdPct))
}

// AlertLimit computes the price at which an alert fires.
func AlertLimit(floor, thresholdPct float64) float64 {
	return floor * (1 - thresholdPct/100)
}

// Suppress reports whether a repeat alert must be withheld: an item already
// alerted at an equal or lower price stays silent.
func Suppress(last *float64, priceUSD float64) bool {
	return last != nil && *last <= priceUSD
}

// Round2 rounds to two decimals, the precision of all stored and compared
// prices.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
