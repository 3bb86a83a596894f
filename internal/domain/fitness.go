package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidWeights se devuelve cuando la configuración del fitness es inconsistente.
var ErrInvalidWeights = errors.New("invalid fitness weights")

// FitnessWeights son los pesos de la función de utilidad lineal.
//
// Fórmula:
//
//	fitness = acc·Accuracy + edge·Edge − fpr·FalsePositive − (complexity/TotalMethods)·Complexity
//
// TotalMethods normaliza la complejidad respecto al universo de detectores,
// no respecto al tamaño del combo. Se resuelve una sola vez al arrancar.
type FitnessWeights struct {
	Accuracy      float64
	Edge          float64
	FalsePositive float64
	Complexity    float64
	TotalMethods  int
}

// DefaultFitnessWeights devuelve los pesos provisionales (0.35/0.35/0.20/0.10).
func DefaultFitnessWeights(totalMethods int) FitnessWeights {
	return FitnessWeights{
		Accuracy:      0.35,
		Edge:          0.35,
		FalsePositive: 0.20,
		Complexity:    0.10,
		TotalMethods:  totalMethods,
	}
}

// Validate comprueba los pesos. Complexity > 0 garantiza que el fitness decrece
// estrictamente con el número de métodos.
func (w FitnessWeights) Validate() error {
	if w.TotalMethods <= 0 {
		return fmt.Errorf("%w: total_methods must be > 0, got %d", ErrInvalidWeights, w.TotalMethods)
	}
	if w.Accuracy < 0 || w.Edge < 0 || w.FalsePositive < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if w.Complexity <= 0 {
		return fmt.Errorf("%w: complexity weight must be > 0", ErrInvalidWeights)
	}
	return nil
}

// FitnessScorer reduce las estadísticas de un combo a un escalar.
type FitnessScorer struct {
	w FitnessWeights
}

// NewFitnessScorer valida los pesos y crea el scorer.
func NewFitnessScorer(w FitnessWeights) (FitnessScorer, error) {
	if err := w.Validate(); err != nil {
		return FitnessScorer{}, fmt.Errorf("domain.NewFitnessScorer: %w", err)
	}
	return FitnessScorer{w: w}, nil
}

// Weights devuelve los pesos configurados.
func (s FitnessScorer) Weights() FitnessWeights {
	return s.w
}

// Score calcula el fitness. Mayor es mejor.
func (s FitnessScorer) Score(r ComboResult) float64 {
	complexity := float64(r.Complexity) / float64(s.w.TotalMethods)
	return r.Accuracy*s.w.Accuracy +
		r.EdgeVsMarket*s.w.Edge -
		r.FalsePositiveRate*s.w.FalsePositive -
		complexity*s.w.Complexity
}
