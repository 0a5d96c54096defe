package storage

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process store used by the simulate command and by tests.
// A single mutex serialises all writes, which trivially satisfies the
// same-key serialisation contract.
type Memory struct {
	mu         sync.Mutex
	floors     map[string]*float64
	thresholds map[string]float64
	notified   map[string]float64
	history    []FloorSample
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		floors:     make(map[string]*float64),
		thresholds: make(map[string]float64),
		notified:   make(map[string]float64),
	}
}

func (m *Memory) GetFloor(_ context.Context, rarity string) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if price, ok := m.floors[rarity]; ok && price != nil {
		value := *price
		return &value, nil
	}
	return nil, nil
}

func (m *Memory) SetFloor(_ context.Context, rarity string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rounded := round2(price)
	m.floors[rarity] = &rounded
	return nil
}

func (m *Memory) GetThreshold(_ context.Context, rarity string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if percent, ok := m.thresholds[rarity]; ok {
		return percent, nil
	}
	return DefaultThresholdPercent, nil
}

func (m *Memory) SetThreshold(_ context.Context, rarity string, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[rarity] = percent
	return nil
}

func (m *Memory) ListFloors(_ context.Context) ([]FloorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]FloorRecord, 0, len(m.floors))
	for rarity, price := range m.floors {
		rec := FloorRecord{Rarity: rarity, ThresholdPercent: DefaultThresholdPercent}
		if percent, ok := m.thresholds[rarity]; ok {
			rec.ThresholdPercent = percent
		}
		if price != nil {
			value := *price
			rec.FloorPrice = &value
		}
		records = append(records, rec)
	}
	return records, nil
}

func (m *Memory) GetLastAlertedPrice(_ context.Context, itemID string) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if price, ok := m.notified[itemID]; ok {
		value := price
		return &value, nil
	}
	return nil, nil
}

func (m *Memory) SetLastAlertedPrice(_ context.Context, itemID string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[itemID] = round2(price)
	return nil
}

func (m *Memory) InsertFloorSample(_ context.Context, sample FloorSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = time.Now().UTC()
	}
	sample.Price = round2(sample.Price)
	m.history = append(m.history, sample)
	return nil
}

func (m *Memory) ListFloorSamplesBetween(_ context.Context, from, to time.Time) ([]FloorSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FloorSample, 0)
	for _, sample := range m.history {
		if !sample.ObservedAt.Before(from) && sample.ObservedAt.Before(to) {
			out = append(out, sample)
		}
	}
	return out, nil
}

var (
	_ FloorStore        = (*Memory)(nil)
	_ NotificationStore = (*Memory)(nil)
	_ HistoryStore      = (*Memory)(nil)
)
