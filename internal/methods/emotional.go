package methods

// emotional.go — E: filtros de sesgo emocional. Los tres detectores eliminan
// las apuestas de las wallets sesgadas y calculan la señal sobre el resto.

import (
	"math"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const (
	e10MinBets         = 3
	e10Consistency     = 0.85
	e11EarlyFraction   = 5 // primer 20%
	e11SkewThreshold   = 0.3
	e15RoundDivisor    = 50.0
	e15RoundRatio      = 0.7
	e15MinWalletBets   = 2
	e15ConfidenceScale = 10.0
)

// e10LoyaltyBias detecta wallets que apuestan siempre al mismo lado sin mirar las odds.
func e10LoyaltyBias(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	loyal := make(map[string]bool)
	for addr, wb := range groupByWallet(bets) {
		if len(wb) < e10MinBets {
			continue
		}
		yes := 0
		for _, b := range wb {
			if b.Side == domain.SideYes {
				yes++
			}
		}
		r := float64(yes) / float64(len(wb))
		if math.Max(r, 1-r) >= e10Consistency {
			loyal[addr] = true
		}
	}

	clean := excludeWallets(bets, loyal)
	signal, _, _ := volumeSignal(clean)

	var loyalVol, totalVol float64
	for _, b := range bets {
		totalVol += b.Amount
		if loyal[b.Wallet] {
			loyalVol += b.Amount
		}
	}
	confidence, fraction := 0.1, 0.0
	if totalVol > 0 {
		fraction = loyalVol / totalVol
		confidence = math.Max(0.1, clampUnit(fraction*2))
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: clean,
		Metadata: map[string]any{
			"emotional_wallets":     len(loyal),
			"bets_filtered":         len(bets) - len(clean),
			"loyal_volume_fraction": fraction,
		},
	}, nil
}

// e11RecencyBias compara el primer 20% de apuestas con el resto. Si el tramo
// inicial está muy sesgado se descartan las wallets que solo apostaron al principio.
func e11RecencyBias(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	if len(bets) < 5 {
		return domain.Neutral(bets, 0, nil), nil
	}

	sorted := sortedByTime(bets)
	cut := max(1, len(sorted)/e11EarlyFraction)
	early, late := sorted[:cut], sorted[cut:]

	skew := math.Abs(yesRatio(early) - yesRatio(late))
	clean := bets
	if skew > e11SkewThreshold {
		lateWallets := make(map[string]bool, len(late))
		for _, b := range late {
			lateWallets[b.Wallet] = true
		}
		onlyEarly := make(map[string]bool)
		for _, b := range early {
			if !lateWallets[b.Wallet] {
				onlyEarly[b.Wallet] = true
			}
		}
		clean = excludeWallets(bets, onlyEarly)
	}

	signal, _, _ := volumeSignal(clean)
	return domain.MethodResult{
		Signal:       signal,
		Confidence:   math.Max(0.1, clampUnit(skew*2)),
		FilteredBets: clean,
		Metadata: map[string]any{
			"skew":          skew,
			"bets_filtered": len(bets) - len(clean),
		},
	}, nil
}

// e15RoundNumbers marca como emocionales las wallets que apuestan cantidades redondas.
func e15RoundNumbers(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	emotional := make(map[string]bool)
	for addr, wb := range groupByWallet(bets) {
		if len(wb) < e15MinWalletBets {
			continue
		}
		round := 0
		for _, b := range wb {
			if IsRoundAmount(b.Amount) {
				round++
			}
		}
		if float64(round)/float64(len(wb)) > e15RoundRatio {
			emotional[addr] = true
		}
	}

	clean := excludeWallets(bets, emotional)
	signal, _, _ := volumeSignal(clean)
	confidence := 0.1
	if len(emotional) > 0 {
		confidence = clampUnit(float64(len(emotional)) / e15ConfidenceScale)
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: clean,
		Metadata: map[string]any{
			"emotional_wallets": len(emotional),
			"bets_filtered":     len(bets) - len(clean),
		},
	}, nil
}

// IsRoundAmount indica si una cantidad es múltiplo exacto de 50 (y al menos 50).
// El store usa el mismo criterio al recalcular el rationality score.
func IsRoundAmount(amount float64) bool {
	return amount >= e15RoundDivisor && math.Mod(amount, e15RoundDivisor) == 0
}

// yesRatio devuelve la fracción de apuestas YES (0.5 si no hay apuestas).
func yesRatio(bets []domain.Bet) float64 {
	if len(bets) == 0 {
		return 0.5
	}
	yes := 0
	for _, b := range bets {
		if b.Side == domain.SideYes {
			yes++
		}
	}
	return float64(yes) / float64(len(bets))
}
