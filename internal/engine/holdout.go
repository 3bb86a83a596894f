package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// Split es la partición temporal train/holdout de los mercados.
type Split struct {
	Train   []domain.Market
	Holdout []domain.Market
	// HoldoutAvailable es false cuando el holdout tiene menos mercados que el
	// mínimo: demasiado pequeño para validar.
	HoldoutAvailable bool
}

// SplitHoldout ordena los mercados por created_at (estable) y reserva los más
// recientes como holdout: split = floor(n·(1−fraction)). Todo mercado del train
// se creó antes (o a la vez) que cualquiera del holdout.
func SplitHoldout(markets []domain.Market, fraction float64, minHoldout int) (Split, error) {
	if fraction < 0 || fraction >= 1 {
		return Split{}, fmt.Errorf("engine.SplitHoldout: fraction must be in [0,1), got %v", fraction)
	}

	sorted := make([]domain.Market, len(markets))
	copy(sorted, markets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	cut := int(math.Floor(float64(len(sorted)) * (1 - fraction)))
	s := Split{
		Train:   sorted[:cut],
		Holdout: sorted[cut:],
	}
	s.HoldoutAvailable = len(s.Holdout) >= minHoldout && len(s.Holdout) > 0
	return s, nil
}
