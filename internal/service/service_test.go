package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"floorwatch/internal/alerting"
	"floorwatch/internal/engine"
	"floorwatch/internal/fetch"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/storage"
)

type fixedRate struct{ rate *float64 }

func (f fixedRate) Spot(context.Context) *float64 { return f.rate }

type captureNotifier struct {
	mu     sync.Mutex
	alerts []alerting.Alert
}

func (n *captureNotifier) Notify(_ context.Context, alert alerting.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

// marketServer answers the cheapest-by-rarity search with one priced item per
// rarity from the given table; rarities missing from the table return empty.
func marketServer(t *testing.T, prices map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Filter struct {
				Traits []struct {
					Values []string `json:"values"`
				} `json:"traits"`
			} `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode search payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if len(payload.Filter.Traits) != 1 || len(payload.Filter.Traits[0].Values) != 1 {
			w.Write([]byte(`{"items": []}`))
			return
		}
		name := payload.Filter.Traits[0].Values[0]
		price, ok := prices[name]
		if !ok {
			w.Write([]byte(`{"items": []}`))
			return
		}
		item := map[string]any{
			"id":         fmt.Sprintf("POLYGON:0xabc:%s", name),
			"tokenId":    name,
			"blockchain": "POLYGON",
			"properties": map[string]any{
				"attributes": []any{
					map[string]any{"key": "Rarity", "value": name},
				},
			},
			"bestSellOrder": map[string]any{
				"price": price,
				"take": map[string]any{
					"assetType": map[string]any{"assetClass": "NATIVE"},
				},
			},
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{item}})
	}))
}

func newService(srvURL string, rate *float64, store *storage.Memory, notifier *captureNotifier) *Service {
	fetcher := fetch.New(fetch.Options{Attempts: 1, Backoff: time.Millisecond, Timeout: 2 * time.Second}, zerolog.Nop())
	market := marketplace.NewClient(marketplace.Options{BaseURL: srvURL, Collection: "POLYGON-0xabc"}, fetcher, zerolog.Nop())
	resolver := marketplace.NewResolver(time.Second, zerolog.Nop())
	eng := engine.New(store, store, store, notifier, 3, zerolog.Nop())
	return New(nil, market, resolver, fixedRate{rate}, eng, zerolog.Nop())
}

func TestProcessTickBootstrapsFloors(t *testing.T) {
	srv := marketServer(t, map[string]string{
		"Legendary": "100", "Epic": "50", "Rare": "20", "Uncommon": "10", "Common": "5",
	})
	defer srv.Close()

	store := storage.NewMemory()
	notifier := &captureNotifier{}
	rate := 1.0
	s := newService(srv.URL, &rate, store, notifier)

	if err := s.ProcessTick(context.Background(), 1); err != nil {
		t.Fatalf("ProcessTick: %v", err)
	}

	floors, _ := store.ListFloors(context.Background())
	if len(floors) != 5 {
		t.Fatalf("floors = %d, want all five rarities bootstrapped", len(floors))
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("alerts = %d, want none on bootstrap", len(notifier.alerts))
	}
}

func TestProcessTickFiresAlertOnDrop(t *testing.T) {
	store := storage.NewMemory()
	notifier := &captureNotifier{}
	ctx := context.Background()

	first := marketServer(t, map[string]string{"Rare": "200"})
	rate := 1.0
	s := newService(first.URL, &rate, store, notifier)
	if err := s.ProcessTick(ctx, 1); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	first.Close()

	second := marketServer(t, map[string]string{"Rare": "90"})
	defer second.Close()
	s = newService(second.URL, &rate, store, notifier)
	if err := s.ProcessTick(ctx, 2); err != nil {
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
		t.Fatalf("floor = %v, want 90", floor)
	}
}

func TestProcessTickNilRate(t *testing.T) {
	srv := marketServer(t, map[string]string{"Rare": "200"})
	defer srv.Close()

	store := storage.NewMemory()
	notifier := &captureNotifier{}
	s := newService(srv.URL, nil, store, notifier)

	if err := s.ProcessTick(context.Background(), 1); err != nil {
		t.Fatalf("ProcessTick: %v", err)
	}
	if floors, _ := store.ListFloors(context.Background()); len(floors) != 0 {
		t.Fatalf("floors = %v, want none without a conversion rate", floors)
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("alerts = %d, want none", len(notifier.alerts))
	}
}

func TestProcessTickEmptyMarket(t *testing.T) {
	srv := marketServer(t, nil)
	defer srv.Close()

	store := storage.NewMemory()
	rate := 1.0
	s := newService(srv.URL, &rate, store, &captureNotifier{})

	if err := s.ProcessTick(context.Background(), 1); err != nil {
		t.Fatalf("ProcessTick: %v", err)
	}
	if floors, _ := store.ListFloors(context.Background()); len(floors) != 0 {
		t.Fatalf("floors = %v, want none", floors)
	}
}
