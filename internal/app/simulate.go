package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"floorwatch/internal/alerting"
	"floorwatch/internal/engine"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/rarity"
	"floorwatch/internal/storage"
)

// SimulateOptions configure a dry run of the floor/alert rules.
type SimulateOptions struct {
	Rarity    rarity.Rarity
	Threshold float64
	Prices    []float64
}

// Simulate replays a USD price sequence through the engine against an
// in-memory store and prints the decision made on each tick. Nothing touches
// the database or the alert channel.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	mem := storage.NewMemory()
	if opts.Threshold > 0 {
		if err := mem.SetThreshold(ctx, opts.Rarity.String(), opts.Threshold); err != nil {
			return err
		}
	}

	recorder := &recordingNotifier{}
	eng := engine.New(mem, mem, mem, recorder, a.Config.Watcher.RefreshEvery, a.Logger)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Tick\tPrice (USD)\tFloor After\tAlert")

	for i, price := range opts.Prices {
		tick := int64(i + 1)
		value := price
		item := marketplace.Item{
			ItemID:   fmt.Sprintf("SIM-%d", tick),
			Rarity:   opts.Rarity.String(),
			PriceUSD: &value,
		}

		alertsBefore := len(recorder.alerts)
		if err := eng.EvaluateItem(ctx, tick, item); err != nil {
			return err
		}

		floor, err := mem.GetFloor(ctx, opts.Rarity.String())
		if err != nil {
			return err
		}
		floorStr := "-"
		if floor != nil {
			floorStr = fmt.Sprintf("%.2f", *floor)
		}
		fired := ""
		if len(recorder.alerts) > alertsBefore {
			fired = "fired"
		}
		fmt.Fprintf(writer, "%d\t%.2f\t%s\t%s\n", tick, price, floorStr, fired)
	}

	return writer.Flush()
}

type recordingNotifier struct {
	alerts []alerting.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, alert alerting.Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

var _ alerting.Notifier = (*recordingNotifier)(nil)
