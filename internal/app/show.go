package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"floorwatch/internal/rarity"
	"floorwatch/internal/storage"
)

// Show prints the current per-rarity floors and thresholds.
func (a *App) Show(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListFloors(ctx)
	if err != nil {
		return err
	}

	byRarity := make(map[string]storage.FloorRecord, len(records))
	for _, rec := range records {
		byRarity[rec.Rarity] = rec
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rarity\tFloor (USD)\tThreshold %\tUpdated (UTC)")

	for _, tier := range rarity.All() {
		rec, ok := byRarity[tier.String()]
		if !ok {
			fmt.Fprintf(writer, "%s\t-\t%.2f\t-\n", tier, storage.DefaultThresholdPercent)
			continue
		}
		floor := "-"
		if rec.FloorPrice != nil {
			floor = fmt.Sprintf("%.2f", *rec.FloorPrice)
		}
		updated := "-"
		if !rec.UpdatedAt.IsZero() {
			updated = rec.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "%s\t%s\t%.2f\t%s\n", tier, floor, rec.ThresholdPercent, updated)
	}

	return writer.Flush()
}
