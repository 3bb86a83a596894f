package methods

// suspicious.go — S: detección de wallets sospechosas.
//   - S1: wallets con win rate > 2σ sobre la media; su volumen marca la dirección.
//   - S4: excluye cuentas cebo (sandpit) del pool y reenvía las apuestas limpias.

import (
	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const (
	s1MinResolvedBets  = 10
	s1StdDevThreshold  = 2.0
	s1MinQualified     = 3
	s4SandpitMinBets   = 10
	s4SandpitMaxWin    = 0.25
	s4SandpitMinVolume = 5000.0
	s4NewWalletMaxBets = 3
	s4NewWalletLarge   = 2000.0
)

func s1WinRateOutlier(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	var qualified []domain.Wallet
	for _, w := range wallets.Wallets() {
		if w.TotalBets >= s1MinResolvedBets {
			qualified = append(qualified, w)
		}
	}
	if len(qualified) < s1MinQualified {
		return domain.Neutral(bets, 0, map[string]any{"reason": "insufficient qualified wallets"}), nil
	}

	rates := make([]float64, len(qualified))
	for i, w := range qualified {
		rates[i] = w.WinRate
	}
	mean, std := meanStd(rates)
	if std == 0 {
		return domain.Neutral(bets, 0, map[string]any{"reason": "zero std dev"}), nil
	}

	threshold := mean + s1StdDevThreshold*std
	sharp := make(map[string]bool)
	for _, w := range qualified {
		if w.WinRate > threshold {
			sharp[w.Address] = true
		}
	}
	if len(sharp) == 0 {
		return domain.Neutral(bets, 0.1, map[string]any{"sharp_wallets": 0, "threshold": threshold}), nil
	}

	var sharpBets []domain.Bet
	for _, b := range bets {
		if sharp[b.Wallet] {
			sharpBets = append(sharpBets, b)
		}
	}
	signal, yesVol, noVol := volumeSignal(sharpBets)
	if yesVol+noVol == 0 {
		return domain.Neutral(bets, 0.1, map[string]any{"sharp_wallets": len(sharp)}), nil
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   clampUnit(float64(len(sharp)) / 10),
		FilteredBets: bets,
		Metadata: map[string]any{
			"sharp_wallets": len(sharp),
			"threshold":     threshold,
			"mean_wr":       mean,
			"std_wr":        std,
		},
	}, nil
}

func s4SandpitFilter(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	byWallet := groupByWallet(bets)
	sandpit := make(map[string]bool)

	for _, w := range wallets.Wallets() {
		switch {
		case w.FlaggedSandpit:
			sandpit[w.Address] = true
		case w.TotalBets >= s4SandpitMinBets && w.WinRate < s4SandpitMaxWin && w.TotalVolume > s4SandpitMinVolume:
			// ganó una vez y pierde de forma consistente con mucho volumen
			sandpit[w.Address] = true
		case w.TotalBets <= s4NewWalletMaxBets:
			// wallet nueva con una primera apuesta sospechosamente grande
			for _, b := range byWallet[w.Address] {
				if b.Amount > s4NewWalletLarge {
					sandpit[w.Address] = true
					break
				}
			}
		}
	}

	clean := excludeWallets(bets, sandpit)
	signal, _, _ := volumeSignal(clean)
	confidence := 0.1
	if len(sandpit) > 0 {
		confidence = 0.5
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: clean,
		Metadata: map[string]any{
			"sandpit_wallets": len(sandpit),
			"bets_removed":    len(bets) - len(clean),
		},
	}, nil
}
