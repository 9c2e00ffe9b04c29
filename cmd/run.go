package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/geosalud/acceso/internal/model"
)

var (
	runOut     string
	runNoCache bool
	runTop     int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full accessibility analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runNoCache {
			cfg.Cache.Disabled = true
		}

		runner, closer, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closer()

		bundle, err := runner.Bundle(ctx)
		if err != nil {
			return err
		}

		printReport(cmd, bundle)

		if runOut != "" {
			if err := exportSummary(runOut, summarize(bundle)); err != nil {
				return err
			}
			zap.L().Info("summary exported", zap.String("path", runOut))
		}

		return nil
	},
}

func printReport(cmd *cobra.Command, b *model.Bundle) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Facilities (operational): %d\n", len(b.Facilities))
	fmt.Fprintf(out, "Districts:                %d\n", len(b.Districts))
	fmt.Fprintf(out, "Matched to a district:    %d\n\n", len(b.Joined))

	fmt.Fprintln(out, "Hospitals by department:")
	for _, total := range b.DepartmentTotals {
		fmt.Fprintf(out, "  %-20s %d\n", total.Department, total.TotalHospitals)
	}

	fmt.Fprintf(out, "\nTop districts by hospital count:\n")
	counts := make([]model.DistrictHospitalCount, len(b.DistrictCounts))
	copy(counts, b.DistrictCounts)
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].HospitalCount > counts[j].HospitalCount
	})
	top := runTop
	if top < 0 {
		top = 0
	}
	if top > len(counts) {
		top = len(counts)
	}
	for _, c := range counts[:top] {
		fmt.Fprintf(out, "  %06d %-30s %d\n", c.DistrictCode, c.DistrictName, c.HospitalCount)
	}

	depts := make([]string, 0, len(b.Proximity))
	for dept := range b.Proximity {
		depts = append(depts, dept)
	}
	sort.Strings(depts)
	for _, dept := range depts {
		result := b.Proximity[dept]
		fmt.Fprintf(out, "\nProximity (%s):\n", dept)
		if result == nil {
			fmt.Fprintln(out, "  population centers unavailable")
			continue
		}
		fmt.Fprintf(out, "  centers analyzed: %d\n", len(result.Centers))
		fmt.Fprintf(out, "  most isolated:    %s (%s), %d hospitals within reach\n",
			result.Isolated.Name, result.Isolated.District, result.Isolated.FacilitiesWithin)
		fmt.Fprintf(out, "  best served:      %s (%s), %d hospitals within reach\n",
			result.Concentrated.Name, result.Concentrated.District, result.Concentrated.FacilitiesWithin)
	}
}

// exportSummary writes the summary as JSON or YAML depending on the file
// extension.
func exportSummary(path string, s runSummary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		return eris.Errorf("export: unsupported format %q, use .json or .yaml", filepath.Ext(path))
	}
	if err != nil {
		return eris.Wrap(err, "export: marshal summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write summary")
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runOut, "out", "", "write the summary to a .json or .yaml file")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "bypass the bundle cache")
	runCmd.Flags().IntVar(&runTop, "top", 10, "districts to show in the report")
	rootCmd.AddCommand(runCmd)
}
