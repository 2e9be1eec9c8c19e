package sim

import (
	"math"
	"time"

	"github.com/openw3/world3/internal/model"
)

// Output is a completed simulation run: the time-ordered state sequence
// plus the parameters and identity that produced it. It is owned by
// whoever requested the run until handed off for persistence or rendering.
type Output struct {
	ScenarioID   string `json:"scenario_id"`
	ScenarioName string `json:"scenario_name"`
	// Simulation years, one per state.
	Timeline []float64          `json:"timeline"`
	States   []model.WorldState `json:"states"`
	Params   model.ScenarioParams `json:"params"`
	// ISO-8601 timestamp of completion.
	ComputedAt string `json:"computed_at"`
}

// NewOutput assembles an Output from a finished trajectory, timestamped now.
func NewOutput(states []model.WorldState, p model.ScenarioParams) *Output {
	timeline := make([]float64, len(states))
	for i := range states {
		timeline[i] = states[i].Time
	}
	return &Output{
		ScenarioID:   p.Meta.ID,
		ScenarioName: p.Meta.Name,
		Timeline:     timeline,
		States:       states,
		Params:       p,
		ComputedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

// StateAtYear returns the state closest to the requested year, or nil for
// an empty output.
func (o *Output) StateAtYear(year float64) *model.WorldState {
	var best *model.WorldState
	bestDist := math.Inf(1)
	for i := range o.States {
		if d := math.Abs(o.States[i].Time - year); d < bestDist {
			bestDist = d
			best = &o.States[i]
		}
	}
	return best
}

// Series extracts one named variable as a time series. Paths use the wire
// field names, e.g. "population.population" or "resources.fraction_remaining".
// Unknown paths yield NaN entries.
func (o *Output) Series(path string) []float64 {
	out := make([]float64, len(o.States))
	for i := range o.States {
		v, ok := field(&o.States[i], path)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func field(s *model.WorldState, path string) (float64, bool) {
	switch path {
	case "population.population":
		return s.Population.Population, true
	case "population.birth_rate":
		return s.Population.BirthRate, true
	case "population.death_rate":
		return s.Population.DeathRate, true
	case "population.life_expectancy":
		return s.Population.LifeExpectancy, true
	case "population.fertility_rate":
		return s.Population.FertilityRate, true
	case "capital.industrial_capital":
		return s.Capital.IndustrialCapital, true
	case "capital.service_capital":
		return s.Capital.ServiceCapital, true
	case "capital.industrial_output":
		return s.Capital.IndustrialOutput, true
	case "capital.industrial_output_per_capita":
		return s.Capital.IndustrialOutputPerCapita, true
	case "capital.service_output_per_capita":
		return s.Capital.ServiceOutputPerCapita, true
	case "agriculture.arable_land":
		return s.Agriculture.ArableLand, true
	case "agriculture.food":
		return s.Agriculture.Food, true
	case "agriculture.food_per_capita":
		return s.Agriculture.FoodPerCapita, true
	case "agriculture.land_yield":
		return s.Agriculture.LandYield, true
	case "resources.nonrenewable_resources":
		return s.Resources.NonrenewableResources, true
	case "resources.fraction_remaining":
		return s.Resources.FractionRemaining, true
	case "pollution.persistent_pollution":
		return s.Pollution.PersistentPollution, true
	case "pollution.pollution_index":
		return s.Pollution.PollutionIndex, true
	default:
		return 0, false
	}
}
