package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the tile plan without fetching anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		planner, err := buildPlanner(cfg)
		if err != nil {
			return err
		}

		tiles, err := planner.Plan()
		if err != nil {
			return eris.Wrap(err, "plan: grid")
		}

		// The unpruned count shows how much the coverage outline saves.
		unprunedPlanner := planner
		unprunedPlanner.Contains = nil
		unpruned, err := unprunedPlanner.Plan()
		if err != nil {
			return eris.Wrap(err, "plan: unpruned grid")
		}

		fmt.Printf("Bounds:    lat %.4f..%.4f, lon %.4f..%.4f\n",
			planner.Bounds.MinLat, planner.Bounds.MaxLat,
			planner.Bounds.MinLng, planner.Bounds.MaxLng)
		fmt.Printf("Tile size: %.6f x %.6f degrees\n", planner.LatStep, planner.LonStep)
		fmt.Printf("Direction: %s\n", planner.Direction)
		fmt.Printf("Tiles:     %d planned (%d unpruned)\n", len(tiles), len(unpruned))

		if verbose {
			for i, t := range tiles {
				fmt.Printf("%5d  top=%.4f bottom=%.4f left=%.4f right=%.4f\n",
					i, t.Top, t.Bottom, t.Left, t.Right)
			}
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Bool("verbose", false, "print every planned tile")
	rootCmd.AddCommand(planCmd)
}
