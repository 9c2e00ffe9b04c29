package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geosalud/acceso/internal/analysis"
)

var (
	proximityDepartment string
	proximityRadius     float64
)

var proximityCmd = &cobra.Command{
	Use:   "proximity",
	Short: "Run a proximity analysis for one department",
	Long:  "Counts operational hospitals within a radius of every population center of a department, for departments beyond the configured defaults or with a non-default radius.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, closer, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closer()

		bundle, err := runner.Bundle(ctx)
		if err != nil {
			return err
		}
		if len(bundle.Centers) == 0 {
			return eris.New("proximity: population-center data unavailable")
		}

		radius := proximityRadius
		if radius == 0 {
			radius = cfg.Analysis.RadiusMeters
		}

		dept := strings.ToUpper(proximityDepartment)
		result := analysis.Proximity(bundle.Centers, analysis.FacilityPoints(bundle.Joined), dept, radius)
		if result == nil {
			return eris.Errorf("proximity: no population centers in department %q", dept)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Department: %s (radius %.0f m)\n", dept, radius)
		fmt.Fprintf(out, "Centers analyzed: %d\n\n", len(result.Centers))
		fmt.Fprintf(out, "Most isolated: %s (%s), %d hospitals within reach\n",
			result.Isolated.Name, result.Isolated.District, result.Isolated.FacilitiesWithin)
		fmt.Fprintf(out, "Best served:   %s (%s), %d hospitals within reach\n\n",
			result.Concentrated.Name, result.Concentrated.District, result.Concentrated.FacilitiesWithin)

		counts := make([]int, len(result.Centers))
		for i, c := range result.Centers {
			counts[i] = c.FacilitiesWithin
		}
		sort.Ints(counts)
		fmt.Fprintf(out, "Hospitals within reach, median: %d\n", counts[len(counts)/2])

		return nil
	},
}

func init() {
	proximityCmd.Flags().StringVar(&proximityDepartment, "department", "", "department to analyze (required)")
	proximityCmd.Flags().Float64Var(&proximityRadius, "radius", 0, "radius in meters (default from config)")
	proximityCmd.MarkFlagRequired("department")
	rootCmd.AddCommand(proximityCmd)
}
