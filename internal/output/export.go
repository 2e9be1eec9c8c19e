// Package output renders simulation results for files and terminals: CSV
// and JSON export, a fixed-width run summary, and normalized ASCII charts.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/openw3/world3/internal/sim"
)

var csvHeader = []string{
	"year",
	"population",
	"cohort_0_14",
	"cohort_15_44",
	"cohort_45_64",
	"cohort_65_plus",
	"birth_rate",
	"death_rate",
	"life_expectancy",
	"fertility_rate",
	"industrial_capital",
	"service_capital",
	"industrial_output",
	"industrial_output_per_capita",
	"service_output_per_capita",
	"arable_land",
	"food",
	"food_per_capita",
	"land_yield",
	"nnr_fraction",
	"persistent_pollution",
	"pollution_index",
}

// WriteCSV streams the full trajectory as CSV, one row per state.
func WriteCSV(w io.Writer, out *sim.Output) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range out.States {
		row := []string{
			fmt.Sprintf("%.1f", s.Time),
			fmt.Sprintf("%.4e", s.Population.Population),
			fmt.Sprintf("%.4e", s.Population.Cohort0to14),
			fmt.Sprintf("%.4e", s.Population.Cohort15to44),
			fmt.Sprintf("%.4e", s.Population.Cohort45to64),
			fmt.Sprintf("%.4e", s.Population.Cohort65Plus),
			fmt.Sprintf("%.6f", s.Population.BirthRate),
			fmt.Sprintf("%.6f", s.Population.DeathRate),
			fmt.Sprintf("%.2f", s.Population.LifeExpectancy),
			fmt.Sprintf("%.3f", s.Population.FertilityRate),
			fmt.Sprintf("%.4e", s.Capital.IndustrialCapital),
			fmt.Sprintf("%.4e", s.Capital.ServiceCapital),
			fmt.Sprintf("%.4e", s.Capital.IndustrialOutput),
			fmt.Sprintf("%.2f", s.Capital.IndustrialOutputPerCapita),
			fmt.Sprintf("%.2f", s.Capital.ServiceOutputPerCapita),
			fmt.Sprintf("%.4e", s.Agriculture.ArableLand),
			fmt.Sprintf("%.4e", s.Agriculture.Food),
			fmt.Sprintf("%.2f", s.Agriculture.FoodPerCapita),
			fmt.Sprintf("%.2f", s.Agriculture.LandYield),
			fmt.Sprintf("%.4f", s.Resources.FractionRemaining),
			fmt.Sprintf("%.4e", s.Pollution.PersistentPollution),
			fmt.Sprintf("%.4f", s.Pollution.PollutionIndex),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the trajectory to path, creating or truncating it.
func WriteCSVFile(path string, out *sim.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, out); err != nil {
		return err
	}
	return f.Close()
}

// ExportJSON writes the full output (timeline, states, params) to path as
// indented JSON.
func ExportJSON(path string, out *sim.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return f.Close()
}
