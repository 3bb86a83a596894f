package methods

import "fmt"

// Categorías de detectores.
const (
	CategorySuspicious    = "S"
	CategoryDiscrete      = "D"
	CategoryEmotional     = "E"
	CategoryStatistical   = "T"
	CategoryPsychological = "P"
	CategoryMarkov        = "M"
)

// RegisterBuiltins registra los detectores incluidos en el binario.
// El orden de registro define el orden de IDs() y de las categorías.
func RegisterBuiltins(r *Registry) error {
	builtins := []Info{
		{ID: "S1", Category: CategorySuspicious, Description: "Win-rate outlier (>2σ) wallets lead", Fn: s1WinRateOutlier},
		{ID: "S4", Category: CategorySuspicious, Description: "Sandpit account filter", Fn: s4SandpitFilter},
		{ID: "D5", Category: CategoryDiscrete, Description: "Vacuous truth on extreme median odds", Fn: d5VacuousTruth},
		{ID: "D7", Category: CategoryDiscrete, Description: "Pigeonhole noise discount", Fn: d7Pigeonhole},
		{ID: "D9", Category: CategoryDiscrete, Description: "Clean vs emotional set partition", Fn: d9SetPartition},
		{ID: "E10", Category: CategoryEmotional, Description: "Loyalty bias filter", Fn: e10LoyaltyBias},
		{ID: "E11", Category: CategoryEmotional, Description: "Recency bias filter", Fn: e11RecencyBias},
		{ID: "E15", Category: CategoryEmotional, Description: "Round-number sizing filter", Fn: e15RoundNumbers},
		{ID: "T17", Category: CategoryStatistical, Description: "Bayesian smart vs public divergence", Fn: t17Bayesian},
		{ID: "T19", Category: CategoryStatistical, Description: "Z-score outlier bets", Fn: t19ZScoreOutliers},
		{ID: "P20", Category: CategoryPsychological, Description: "Nash equilibrium deviation", Fn: p20NashDeviation},
		{ID: "P21", Category: CategoryPsychological, Description: "Prospect theory weighting", Fn: p21ProspectTheory},
		{ID: "P24", Category: CategoryPsychological, Description: "Wisdom vs madness ratio", Fn: p24WisdomMadness},
		{ID: "M26", Category: CategoryMarkov, Description: "Market price phase transitions", Fn: m26MarketPhases},
		{ID: "M27", Category: CategoryMarkov, Description: "Bet flow momentum", Fn: m27FlowMomentum},
	}
	for _, b := range builtins {
		if err := r.Register(b.ID, b.Category, b.Description, b.Fn); err != nil {
			return fmt.Errorf("methods.RegisterBuiltins: %w", err)
		}
	}
	return nil
}

// NewDefaultRegistry devuelve un registry con todos los detectores incluidos.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}
	return r, nil
}
