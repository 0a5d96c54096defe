package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"floorwatch/internal/alerting"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/storage"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerting.Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, alert alerting.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func usd(v float64) *float64 { return &v }

func testItem(id, rarityName string, priceUSD float64) marketplace.Item {
	return marketplace.Item{
		ItemID:   id,
		Rarity:   rarityName,
		Name:     "Test Item",
		PriceUSD: usd(priceUSD),
	}
}

func newTestEngine(store *storage.Memory, notifier alerting.Notifier) *Engine {
	return New(store, store, store, notifier, 3, zerolog.Nop())
}

func TestShouldAlert(t *testing.T) {
	cases := []struct {
		name      string
		price     float64
		floor     float64
		threshold float64
		want      bool
	}{
		{"exactly at limit", 50.00, 100, 50, true},
		{"just above limit", 50.01, 100, 50, false},
		{"well below limit", 10, 100, 50, true},
		{"rounds to limit", 50.004, 100, 50, true},
		{"tight threshold", 99.0, 100, 1, true},
		{"no drop", 100, 100, 50, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldAlert(tc.price, tc.floor, tc.threshold); got != tc.want {
				t.Fatalf("ShouldAlert(%v, %v, %v) = %v, want %v", tc.price, tc.floor, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestSuppress(t *testing.T) {
	if Suppress(nil, 10) {
		t.Fatal("never-alerted item must not be suppressed")
	}
	if !Suppress(usd(40), 45) {
		t.Fatal("repeat at higher price must be suppressed")
	}
	if !Suppress(usd(40), 40) {
		t.Fatal("repeat at equal price must be suppressed")
	}
	if Suppress(usd(40), 39) {
		t.Fatal("strictly lower price must alert again")
	}
}

func TestEvaluateItemBootstrapTick(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{}
	e := newTestEngine(store, notifier)

	if err := e.EvaluateItem(context.Background(), 1, testItem("ITEM-1", "Rare", 200)); err != nil {
		t.Fatalf("EvaluateItem: %v", err)
	}

	floor, err := store.GetFloor(context.Background(), "Rare")
	if err != nil {
		t.Fatalf("GetFloor: %v", err)
	}
	if floor == nil || *floor != 200 {
		t.Fatalf("floor = %v, want 200", floor)
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("no alert expected on bootstrap, got %d", len(notifier.alerts))
	}
}

func TestEvaluateItemAlertsAndRatchetsFloor(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	if err := e.EvaluateItem(ctx, 1, testItem("ITEM-1", "Rare", 200)); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if err := e.EvaluateItem(ctx, 2, testItem("ITEM-2", "Rare", 90)); err != nil {
		t.Fatalf("tick 2: %v", err)
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(notifier.alerts))
	}
	alert := notifier.alerts[0]
	if alert.PriceUSD != 90 || alert.FloorPrice != 200 {
		t.Fatalf("alert = %+v", alert)
	}

	floor, _ := store.GetFloor(ctx, "Rare")
	if floor == nil || *floor != 90 {
		t.Fatalf("floor = %v, want ratcheted down to 90", floor)
	}
	last, _ := store.GetLastAlertedPrice(ctx, "ITEM-2")
	if last == nil || *last != 90 {
		t.Fatalf("last alerted = %v, want 90", last)
	}
}

func TestEvaluateItemDedup(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	store.SetFloor(ctx, "Epic", 100)
	store.SetLastAlertedPrice(ctx, "ITEM-9", 40)

	// Already alerted at 40: 45 stays silent, 39 fires again.
	if err := e.EvaluateItem(ctx, 2, testItem("ITEM-9", "Epic", 45)); err != nil {
		t.Fatalf("suppressed tick: %v", err)
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("alerts = %d, want suppression", len(notifier.alerts))
	}

	if err := e.EvaluateItem(ctx, 4, testItem("ITEM-9", "Epic", 39)); err != nil {
		t.Fatalf("lower tick: %v", err)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1 after strictly lower price", len(notifier.alerts))
	}
	last, _ := store.GetLastAlertedPrice(ctx, "ITEM-9")
	if last == nil || *last != 39 {
		t.Fatalf("last alerted = %v, want 39", last)
	}
}

func TestEvaluateItemRefreshCadence(t *testing.T) {
	store := storage.NewMemory()
	e := newTestEngine(store, &recordingNotifier{})
	ctx := context.Background()

	prices := map[int64]float64{1: 100, 2: 110, 3: 120, 4: 130, 5: 140, 6: 150}
	for tick := int64(1); tick <= 6; tick++ {
		// Rising prices so the alert rule stays out of the way.
		if err := e.EvaluateItem(ctx, tick, testItem("", "Common", prices[tick])); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		floor, _ := store.GetFloor(ctx, "Common")
		want := map[int64]float64{1: 100, 2: 100, 3: 120, 4: 120, 5: 120, 6: 150}[tick]
		if floor == nil || *floor != want {
			t.Fatalf("tick %d: floor = %v, want %v", tick, floor, want)
		}
	}

	samples, _ := store.ListFloorSamplesBetween(ctx, time.Time{}, time.Now().Add(time.Hour))
	if len(samples) != 2 {
		t.Fatalf("history samples = %d, want 2 (ticks 3 and 6)", len(samples))
	}
}

func TestEvaluateItemNotifierFailureStillCommits(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	store.SetFloor(ctx, "Rare", 100)
	if err := e.EvaluateItem(ctx, 2, testItem("ITEM-5", "Rare", 30)); err != nil {
		t.Fatalf("EvaluateItem: %v", err)
	}

	floor, _ := store.GetFloor(ctx, "Rare")
	if floor == nil || *floor != 30 {
		t.Fatalf("floor = %v, want 30 despite delivery failure", floor)
	}
	last, _ := store.GetLastAlertedPrice(ctx, "ITEM-5")
	if last == nil || *last != 30 {
		t.Fatalf("last alerted = %v, want 30 despite delivery failure", last)
	}
}

func TestEvaluateItemSkips(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	// Unknown rarity.
	if err := e.EvaluateItem(ctx, 1, testItem("ITEM-1", "Mythic", 10)); err != nil {
		t.Fatalf("unknown rarity: %v", err)
	}
	// Missing USD price.
	item := testItem("ITEM-2", "Rare", 0)
	item.PriceUSD = nil
	if err := e.EvaluateItem(ctx, 1, item); err != nil {
		t.Fatalf("nil price: %v", err)
	}

	if floors, _ := store.ListFloors(ctx); len(floors) != 0 {
		t.Fatalf("floors = %v, want none", floors)
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("alerts = %d, want none", len(notifier.alerts))
	}
}

func TestEvaluateItemCustomThreshold(t *testing.T) {
	store := storage.NewMemory()
	notifier := &recordingNotifier{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	store.SetFloor(ctx, "Legendary", 100)
	store.SetThreshold(ctx, "Legendary", 10)

	if err := e.EvaluateItem(ctx, 2, testItem("ITEM-7", "Legendary", 89)); err != nil {
		t.Fatalf("EvaluateItem: %v", err)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1 at 10%% threshold", len(notifier.alerts))
	}
	if notifier.alerts[0].ThresholdPct != 10 {
		t.Fatalf("threshold = %v, want 10", notifier.alerts[0].ThresholdPct)
	}
}
