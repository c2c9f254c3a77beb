package tuning

import (
	"fmt"
	"strings"
)

// Scenario selects the initial friendliness and resource presets.
type Scenario string

const (
	ScenarioRandom               Scenario = "random"
	ScenarioThunderdome          Scenario = "thunderdome"
	ScenarioAllLow               Scenario = "all-low"
	ScenarioAllHigh              Scenario = "all-high"
	ScenarioOutlierLow           Scenario = "one-outlier-low"
	ScenarioOutlierLowOthersHigh Scenario = "one-outlier-low-others-high"
)

// Scenarios lists every known preset in display order.
var Scenarios = []Scenario{
	ScenarioRandom,
	ScenarioThunderdome,
	ScenarioAllLow,
	ScenarioAllHigh,
	ScenarioOutlierLow,
	ScenarioOutlierLowOthersHigh,
}

// ParseScenario normalizes a scenario tag. The empty string selects random.
func ParseScenario(s string) (Scenario, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ScenarioRandom, nil
	}
	for _, sc := range Scenarios {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
}

// Preset is the fixed starting friendliness and stock for one civilization.
// A negative value means "sample randomly".
type Preset struct {
	Friendliness float64
	Stock        float64
}

// Preset values per band.
const (
	lowFriendliness  = 0.1
	highFriendliness = 0.9
	lowStock         = 20
	highStock        = 200
)

// PresetFor returns the preset of the index-th civilization (0-based).
func (s Scenario) PresetFor(index int) Preset {
	random := Preset{Friendliness: -1, Stock: -1}
	switch s {
	case ScenarioThunderdome:
		return Preset{Friendliness: 0, Stock: -1}
	case ScenarioAllLow:
		return Preset{Friendliness: lowFriendliness, Stock: lowStock}
	case ScenarioAllHigh:
		return Preset{Friendliness: highFriendliness, Stock: highStock}
	case ScenarioOutlierLow:
		if index == 0 {
			return Preset{Friendliness: lowFriendliness, Stock: lowStock}
		}
		return random
	case ScenarioOutlierLowOthersHigh:
		if index == 0 {
			return Preset{Friendliness: lowFriendliness, Stock: lowStock}
		}
		return Preset{Friendliness: highFriendliness, Stock: highStock}
	}
	return random
}
