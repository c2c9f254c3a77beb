// Package tuning holds every numeric constant of the simulation and loads
// overrides from a YAML tuning file.
package tuning

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits applied by Clamp. Out-of-range values are corrected, never rejected.
const (
	MinPlanets = 2
	MaxPlanets = 200
	MinGrid    = 5
	MaxGrid    = 500
	MinTurns   = 1
	MaxTurns   = 100000
)

// Config is the complete tuning surface of a run.
type Config struct {
	Seed     int64    `yaml:"seed"`
	Scenario Scenario `yaml:"scenario"`
	MaxTurns int      `yaml:"max_turns"`

	World     World     `yaml:"world"`
	Economy   Economy   `yaml:"economy"`
	Diplomacy Diplomacy `yaml:"diplomacy"`
	Combat    Combat    `yaml:"combat"`
}

// World controls planet generation and civilization seeding.
type World struct {
	NumPlanets int `yaml:"num_planets"`
	NumCivs    int `yaml:"num_civs"` // 0 = one civilization per planet
	GridWidth  int `yaml:"grid_width"`
	GridHeight int `yaml:"grid_height"`

	YieldMin    float64 `yaml:"yield_min"`
	YieldMax    float64 `yaml:"yield_max"`
	CapacityMin float64 `yaml:"capacity_min"`
	CapacityMax float64 `yaml:"capacity_max"`
	Clustering  float64 `yaml:"clustering"` // 0 uniform placement, 1 fully noise-weighted

	PopulationMin float64 `yaml:"population_min"`
	PopulationMax float64 `yaml:"population_max"`
	TechMin       float64 `yaml:"tech_min"`
	TechMax       float64 `yaml:"tech_max"`
}

// Economy holds the per-turn growth model constants.
type Economy struct {
	Epsilon float64 `yaml:"epsilon"`

	TechPopulation float64 `yaml:"tech_population"` // β_P
	TechEnergy     float64 `yaml:"tech_energy"`     // β_E

	CulturePopulation float64 `yaml:"culture_population"` // δ_P
	CultureTech       float64 `yaml:"culture_tech"`       // δ_T
	CultureResources  float64 `yaml:"culture_resources"`  // δ_R

	MilitaryPopulation float64 `yaml:"military_population"` // σ_P
	MilitaryTech       float64 `yaml:"military_tech"`       // σ_T
	MilitaryMinerals   float64 `yaml:"military_minerals"`   // σ_M

	FriendlinessDecay float64 `yaml:"friendliness_decay"` // θ
	FriendlinessGain  float64 `yaml:"friendliness_gain"`  // β_f

	EnergyPerPop        float64 `yaml:"energy_per_pop"`        // e_c
	FoodPerPop          float64 `yaml:"food_per_pop"`          // f_c
	MineralsPerMilitary float64 `yaml:"minerals_per_military"` // m_c
	EnergyPerTech       float64 `yaml:"energy_per_tech"`       // α_T
	EnergyPerMilitary   float64 `yaml:"energy_per_military"`   // α_M

	DesperationPopulation float64 `yaml:"desperation_population"` // ε_R
	DesperationResources  float64 `yaml:"desperation_resources"`  // ε_P
	DesperationPoint      float64 `yaml:"desperation_point"`

	MaxCulture float64 `yaml:"max_culture"`
}

// Diplomacy holds the interaction decision constants.
type Diplomacy struct {
	SensorScale float64 `yaml:"sensor_scale"`

	WarWeightFriendliness float64 `yaml:"war_weight_friendliness"` // w1
	WarWeightPopulation   float64 `yaml:"war_weight_population"`   // w2
	WarWeightResources    float64 `yaml:"war_weight_resources"`    // w3
	WarWeightCulture      float64 `yaml:"war_weight_culture"`      // w4
	WarEffectiveness      float64 `yaml:"war_effectiveness"`

	AggressionThreshold     float64 `yaml:"aggression_threshold"`
	CooperationTechBoost    float64 `yaml:"cooperation_tech_boost"`
	CooperationCultureBoost float64 `yaml:"cooperation_culture_boost"`
	TradeTechBoost          float64 `yaml:"trade_tech_boost"`
}

// Combat holds the war resolution constants.
type Combat struct {
	TechPowerFactor float64 `yaml:"tech_power_factor"`
	WarWinBoost     float64 `yaml:"war_win_boost"`
	WarPenalty      float64 `yaml:"war_penalty"`
	ConquestChance  float64 `yaml:"conquest_chance"`
}

// Default returns the baseline tuning.
func Default() Config {
	return Config{
		Seed:     0,
		Scenario: ScenarioRandom,
		MaxTurns: 200,
		World: World{
			NumPlanets:    15,
			NumCivs:       0,
			GridWidth:     30,
			GridHeight:    30,
			YieldMin:      5,
			YieldMax:      20,
			CapacityMin:   50,
			CapacityMax:   200,
			Clustering:    0.5,
			PopulationMin: 10,
			PopulationMax: 50,
			TechMin:       1,
			TechMax:       5,
		},
		Economy: Economy{
			Epsilon:               1e-6,
			TechPopulation:        0.05,
			TechEnergy:            0.1,
			CulturePopulation:     0.01,
			CultureTech:           0.05,
			CultureResources:      0.001,
			MilitaryPopulation:    0.05,
			MilitaryTech:          0.5,
			MilitaryMinerals:      0.05,
			FriendlinessDecay:     0.02,
			FriendlinessGain:      0.05,
			EnergyPerPop:          0.1,
			FoodPerPop:            0.2,
			MineralsPerMilitary:   0.1,
			EnergyPerTech:         0.05,
			EnergyPerMilitary:     0.05,
			DesperationPopulation: 0.5,
			DesperationResources:  0.5,
			DesperationPoint:      0.6,
			MaxCulture:            800,
		},
		Diplomacy: Diplomacy{
			SensorScale:             0.2,
			WarWeightFriendliness:   0.4,
			WarWeightPopulation:     0.2,
			WarWeightResources:      0.2,
			WarWeightCulture:        0.2,
			WarEffectiveness:        0.5,
			AggressionThreshold:     0.2,
			CooperationTechBoost:    0.5,
			CooperationCultureBoost: 1,
			TradeTechBoost:          0.1,
		},
		Combat: Combat{
			TechPowerFactor: 0.1,
			WarWinBoost:     0.15,
			WarPenalty:      0.1,
			ConquestChance:  0.5,
		},
	}
}

// Load reads a YAML tuning file on top of Default. Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("tuning %s: %w", path, err)
	}
	sc, err := ParseScenario(string(cfg.Scenario))
	if err != nil {
		return cfg, fmt.Errorf("tuning %s: %w", path, err)
	}
	cfg.Scenario = sc
	return cfg, nil
}

// Clamp silently corrects out-of-range counts. Each correction is logged.
func (c *Config) Clamp() {
	w := &c.World
	w.GridWidth = clampInt("grid_width", w.GridWidth, MinGrid, MaxGrid)
	w.GridHeight = clampInt("grid_height", w.GridHeight, MinGrid, MaxGrid)

	maxPlanets := MaxPlanets
	if cells := w.GridWidth * w.GridHeight; cells < maxPlanets {
		maxPlanets = cells
	}
	w.NumPlanets = clampInt("num_planets", w.NumPlanets, MinPlanets, maxPlanets)

	if w.NumCivs != 0 {
		w.NumCivs = clampInt("num_civs", w.NumCivs, MinPlanets, w.NumPlanets)
	}
	c.MaxTurns = clampInt("max_turns", c.MaxTurns, MinTurns, MaxTurns)

	if w.YieldMax < w.YieldMin {
		w.YieldMin, w.YieldMax = w.YieldMax, w.YieldMin
	}
	if w.CapacityMax < w.CapacityMin {
		w.CapacityMin, w.CapacityMax = w.CapacityMax, w.CapacityMin
	}
	if w.Clustering < 0 {
		w.Clustering = 0
	}
	if w.Clustering > 1 {
		w.Clustering = 1
	}
	if c.Economy.Epsilon <= 0 {
		c.Economy.Epsilon = 1e-6
	}
	if c.Diplomacy.SensorScale <= 0 {
		c.Diplomacy.SensorScale = Default().Diplomacy.SensorScale
	}
	// A non-positive bar would hand every run a culture victory on turn 1.
	if c.Economy.MaxCulture <= 0 {
		slog.Warn("tuning value clamped", "key", "max_culture", "value", c.Economy.MaxCulture)
		c.Economy.MaxCulture = Default().Economy.MaxCulture
	}
	if c.Scenario == "" {
		c.Scenario = ScenarioRandom
	}
}

// Civs returns the number of civilizations to seed.
func (w World) Civs() int {
	if w.NumCivs <= 0 || w.NumCivs > w.NumPlanets {
		return w.NumPlanets
	}
	return w.NumCivs
}

func clampInt(name string, v, lo, hi int) int {
	switch {
	case v < lo:
		slog.Warn("tuning value clamped", "key", name, "value", v, "min", lo)
		return lo
	case v > hi:
		slog.Warn("tuning value clamped", "key", name, "value", v, "max", hi)
		return hi
	}
	return v
}

// ErrUnknownScenario is returned for scenario tags outside the known presets.
var ErrUnknownScenario = errors.New("unknown scenario")
