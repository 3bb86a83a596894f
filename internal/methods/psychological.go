package methods

// psychological.go — P: señales psicológicas y sociológicas.
//   - P20: desviación del precio reciente frente al VWAP (proxy del equilibrio).
//   - P21: ponderación de probabilidades de prospect theory (γ = 0.61).
//   - P24: proporción de apuestas emocionales; decide cuánto fiarse del volumen.

import (
	"math"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const (
	p20RecentBets         = 10
	p20DeviationThreshold = 0.02
	p21Gamma              = 0.61
	p21LowProb            = 0.15
	p21HighProb           = 0.85
	p24EmotionalCutoff    = 0.4
	p24LowRatio           = 0.30
	p24HighRatio          = 0.70
)

func p20NashDeviation(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	var vol, weighted float64
	for _, b := range bets {
		vol += b.Amount
		weighted += b.Odds * b.Amount
	}
	if vol == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}
	vwap := weighted / vol

	sorted := sortedByTime(bets)
	recent := sorted[len(sorted)-min(p20RecentBets, len(sorted)):]
	var sum float64
	for _, b := range recent {
		sum += b.Odds
	}
	recentPrice := sum / float64(len(recent))
	dev := recentPrice - vwap

	signal, confidence := 0.0, 0.1
	if math.Abs(dev) > p20DeviationThreshold {
		signal = clampSignal(dev * 3)
		confidence = clampUnit(math.Abs(dev) / 0.3)
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata: map[string]any{
			"vwap":         vwap,
			"recent_price": recentPrice,
			"deviation":    dev,
		},
	}, nil
}

func p21ProspectTheory(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	var odds []float64
	for _, b := range bets {
		if b.Odds > 0 && b.Odds < 1 {
			odds = append(odds, b.Odds)
		}
	}
	if len(odds) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	implied := domain.Median(odds)
	mispricing := implied - prospectWeight(implied)

	var signal, confidence float64
	switch {
	case implied < p21LowProb:
		// los eventos improbables se sobreapuestan: la probabilidad real es menor
		signal = -math.Abs(mispricing) * 5
		confidence = clampUnit(math.Abs(mispricing) * 10)
	case implied > p21HighProb:
		signal = math.Abs(mispricing) * 5
		confidence = clampUnit(math.Abs(mispricing) * 10)
	default:
		signal = -mispricing * 2
		confidence = clampUnit(math.Abs(mispricing) * 5)
	}

	return domain.MethodResult{
		Signal:       clampSignal(signal),
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata: map[string]any{
			"implied_prob": implied,
			"mispricing":   mispricing,
		},
	}, nil
}

// prospectWeight es w(p) = p^γ / (p^γ + (1−p)^γ)^(1/γ).
func prospectWeight(p float64) float64 {
	if p <= 0 || p >= 1 {
		return p
	}
	pg := math.Pow(p, p21Gamma)
	return pg / math.Pow(pg+math.Pow(1-p, p21Gamma), 1/p21Gamma)
}

func p24WisdomMadness(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	emotional := 0
	for _, b := range bets {
		if w, ok := wallets.Get(b.Wallet); ok && w.RationalityScore < p24EmotionalCutoff {
			emotional++
		}
	}
	ratio := float64(emotional) / float64(len(bets))
	raw, _, _ := volumeSignal(bets)

	var signal, confidence float64
	regime := "mixed"
	switch {
	case ratio > p24HighRatio:
		regime = "madness"
		signal, confidence = raw, clampUnit(ratio)
	case ratio < p24LowRatio:
		regime = "wisdom"
		signal, confidence = raw*0.3, 0.2
	default:
		signal, confidence = raw*0.6, 0.4
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata: map[string]any{
			"emotion_ratio": ratio,
			"regime":        regime,
		},
	}, nil
}
