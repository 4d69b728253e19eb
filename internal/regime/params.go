package regime

import (
	"github.com/spendlens/engine/models"
)

// EmissionProfile is a state's reference signature over the extracted
// features: the drift it expects per step and the volatility band it
// tolerates around that drift.
type EmissionProfile struct {
	MeanChange    float64
	ChangeTol     float64
	MeanVol       float64
	VolTol        float64
	DailyDrift    float64 // expected fractional price move per day while in the state
}

// Parameters bundles the fixed regime definitions: one emission profile per
// state and the transition-affinity table. Built once, never mutated.
type Parameters struct {
	Emissions   map[models.PriceState]EmissionProfile
	Transitions map[models.PriceState]map[models.PriceState]float64
}

// DefaultParameters returns the regime configuration used in production.
// Transition rows encode strong regime persistence, adjacency along the
// STABLE-RISING-PEAK-DECLINING-TROUGH ring, and elevated exit entropy out
// of VOLATILE. The weights are configuration, not learned online.
func DefaultParameters() Parameters {
	emissions := map[models.PriceState]EmissionProfile{
		models.StateStable:    {MeanChange: 0.000, ChangeTol: 0.008, MeanVol: 0.004, VolTol: 0.008, DailyDrift: 0.000},
		models.StateRising:    {MeanChange: 0.020, ChangeTol: 0.012, MeanVol: 0.010, VolTol: 0.015, DailyDrift: 0.015},
		models.StatePeak:      {MeanChange: 0.004, ChangeTol: 0.010, MeanVol: 0.025, VolTol: 0.012, DailyDrift: 0.002},
		models.StateDeclining: {MeanChange: -0.020, ChangeTol: 0.012, MeanVol: 0.010, VolTol: 0.015, DailyDrift: -0.015},
		models.StateTrough:    {MeanChange: -0.004, ChangeTol: 0.010, MeanVol: 0.025, VolTol: 0.012, DailyDrift: -0.002},
		models.StateVolatile:  {MeanChange: 0.000, ChangeTol: 0.250, MeanVol: 0.120, VolTol: 0.080, DailyDrift: 0.000},
	}

	transitions := map[models.PriceState]map[models.PriceState]float64{
		models.StateStable: {
			models.StateStable:    0.60,
			models.StateRising:    0.13,
			models.StateTrough:    0.13,
			models.StatePeak:      0.04,
			models.StateDeclining: 0.04,
			models.StateVolatile:  0.06,
		},
		models.StateRising: {
			models.StateRising:    0.60,
			models.StatePeak:      0.13,
			models.StateStable:    0.13,
			models.StateDeclining: 0.04,
			models.StateTrough:    0.04,
			models.StateVolatile:  0.06,
		},
		models.StatePeak: {
			models.StatePeak:      0.60,
			models.StateDeclining: 0.13,
			models.StateRising:    0.13,
			models.StateStable:    0.04,
			models.StateTrough:    0.04,
			models.StateVolatile:  0.06,
		},
		models.StateDeclining: {
			models.StateDeclining: 0.60,
			models.StateTrough:    0.13,
			models.StatePeak:      0.13,
			models.StateStable:    0.04,
			models.StateRising:    0.04,
			models.StateVolatile:  0.06,
		},
		models.StateTrough: {
			models.StateTrough:    0.60,
			models.StateStable:    0.13,
			models.StateDeclining: 0.13,
			models.StateRising:    0.04,
			models.StatePeak:      0.04,
			models.StateVolatile:  0.06,
		},
		// A volatile market can resolve into any regime.
		models.StateVolatile: {
			models.StateVolatile:  0.30,
			models.StateStable:    0.14,
			models.StateRising:    0.14,
			models.StatePeak:      0.14,
			models.StateDeclining: 0.14,
			models.StateTrough:    0.14,
		},
	}

	return Parameters{Emissions: emissions, Transitions: transitions}
}
