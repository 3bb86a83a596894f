package methods

// discrete.go — D: matemática discreta.
//   - D5: cuando la mediana de odds es extrema el resultado está prácticamente decidido.
//   - D7: principio del palomar; demasiados "insiders" implica que la mayoría son ruido.
//   - D9: partición de apuestas en emocionales y limpias según rationality.

import (
	"math"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const (
	d5ExtremeHigh     = 0.95
	d5ExtremeLow      = 0.05
	d7SharpWinRate    = 0.65
	d9EmotionalCutoff = 0.4
)

func d5VacuousTruth(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	var odds []float64
	for _, b := range bets {
		if b.Odds > 0 && b.Odds < 1 {
			odds = append(odds, b.Odds)
		}
	}
	if len(odds) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	med := domain.Median(odds)
	var signal, confidence float64
	switch {
	case med >= d5ExtremeHigh:
		signal = 1
		confidence = clampUnit((med - 0.90) / 0.10)
	case med <= d5ExtremeLow:
		signal = -1
		confidence = clampUnit((0.10 - med) / 0.10)
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata:     map[string]any{"median_odds": med},
	}, nil
}

func d7Pigeonhole(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	sharp := 0
	for _, w := range wallets.Wallets() {
		if w.TotalBets >= s1MinResolvedBets && w.WinRate > d7SharpWinRate {
			sharp++
		}
	}

	active := len(groupByWallet(bets))
	maxInsiders := max(1, int(math.Sqrt(float64(active))))

	noise := 0.0
	if sharp > maxInsiders {
		noise = 1 - float64(maxInsiders)/float64(sharp)
	}

	raw, _, _ := volumeSignal(bets)
	return domain.MethodResult{
		Signal:       raw * (1 - noise),
		Confidence:   1 - noise,
		FilteredBets: bets,
		Metadata: map[string]any{
			"sharp_count":    sharp,
			"max_insiders":   maxInsiders,
			"noise_ratio":    noise,
			"active_wallets": active,
		},
	}, nil
}

func d9SetPartition(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	clean := make([]domain.Bet, 0, len(bets))
	emotional := 0
	for _, b := range bets {
		if w, ok := wallets.Get(b.Wallet); ok && w.RationalityScore < d9EmotionalCutoff {
			emotional++
			continue
		}
		clean = append(clean, b)
	}

	ratio := float64(emotional) / float64(len(bets))
	signal, _, _ := volumeSignal(clean)
	return domain.MethodResult{
		Signal:       signal,
		Confidence:   clampUnit(ratio + 0.2),
		FilteredBets: clean,
		Metadata: map[string]any{
			"emotional_bets": emotional,
			"clean_bets":     len(clean),
			"emotion_ratio":  ratio,
		},
	}, nil
}
