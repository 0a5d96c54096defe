package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"floorwatch/internal/app"
	"floorwatch/internal/rarity"
)

var (
	simulateRarity    string
	simulateThreshold float64
	simulatePrices    []float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a USD price sequence through the floor/alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, ok := rarity.Parse(simulateRarity)
		if !ok {
			return fmt.Errorf("--rarity must be one of Legendary, Epic, Rare, Uncommon, Common")
		}
		if len(simulatePrices) == 0 {
			return errors.New("--prices must list at least one price")
		}
		if simulateThreshold < 0 || simulateThreshold > 100 {
			return errors.New("--threshold must lie in (0, 100]")
		}

		opts := app.SimulateOptions{
			Rarity:    tier,
			Threshold: simulateThreshold,
			Prices:    simulatePrices,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateRarity, "rarity", "Rare", "Rarity tier to simulate")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 0, "Alert threshold percent (0 keeps the 50% default)")
	simulateCmd.Flags().Float64SliceVar(&simulatePrices, "prices", nil, "Comma-separated USD prices, one per tick")
}
