package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFloorRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	floor, err := m.GetFloor(ctx, "Epic")
	if err != nil {
		t.Fatalf("GetFloor: %v", err)
	}
	if floor != nil {
		t.Fatalf("floor = %v, want nil before the first set", floor)
	}

	if err := m.SetFloor(ctx, "Epic", 123.456); err != nil {
		t.Fatalf("SetFloor: %v", err)
	}
	floor, _ = m.GetFloor(ctx, "Epic")
	if floor == nil || *floor != 123.46 {
		t.Fatalf("floor = %v, want rounded to 123.46", floor)
	}

	// Mutating the returned pointer must not leak into the store.
	*floor = 1
	if again, _ := m.GetFloor(ctx, "Epic"); *again != 123.46 {
		t.Fatal("GetFloor must return a copy")
	}
}

func TestMemoryThresholdDefault(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	percent, err := m.GetThreshold(ctx, "Rare")
	if err != nil {
		t.Fatalf("GetThreshold: %v", err)
	}
	if percent != DefaultThresholdPercent {
		t.Fatalf("threshold = %v, want default %v", percent, DefaultThresholdPercent)
	}

	m.SetThreshold(ctx, "Rare", 12.5)
	if percent, _ = m.GetThreshold(ctx, "Rare"); percent != 12.5 {
		t.Fatalf("threshold = %v, want 12.5", percent)
	}
}

func TestMemoryListFloors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.SetFloor(ctx, "Epic", 10)
	m.SetThreshold(ctx, "Epic", 20)

	records, err := m.ListFloors(ctx)
	if err != nil {
		t.Fatalf("ListFloors: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %v", records)
	}
	rec := records[0]
	if rec.Rarity != "Epic" || rec.FloorPrice == nil || *rec.FloorPrice != 10 || rec.ThresholdPercent != 20 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestMemoryNotifications(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	last, _ := m.GetLastAlertedPrice(ctx, "ITEM-1")
	if last != nil {
		t.Fatalf("last = %v, want nil for unseen item", last)
	}

	m.SetLastAlertedPrice(ctx, "ITEM-1", 49.999)
	last, _ = m.GetLastAlertedPrice(ctx, "ITEM-1")
	if last == nil || *last != 50 {
		t.Fatalf("last = %v, want rounded to 50", last)
	}
}

func TestMemoryFloorSamples(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		m.InsertFloorSample(ctx, FloorSample{
			Rarity:     "Common",
			Price:      float64(100 + i),
			ObservedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	samples, err := m.ListFloorSamplesBetween(ctx, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListFloorSamplesBetween: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want the half-open window to exclude the end", len(samples))
	}
	if samples[0].Price != 100 || samples[1].Price != 101 {
		t.Fatalf("samples = %+v", samples)
	}
}
