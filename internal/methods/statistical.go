package methods

// statistical.go — T: análisis estadístico.

import (
	"math"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const (
	t17AmountNormalizer  = 50.0
	t17UpdateStep        = 0.80
	t17RationalityCutoff = 0.58
	t17MaxLogOdds        = 500.0
	t19ZScoreThreshold   = 2.5
	defaultRationality   = 0.5
)

// t17Bayesian compara el posterior "público" (todas las apuestas) con el
// posterior "smart" (solo wallets racionales). La divergencia es la señal.
func t17Bayesian(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	if len(bets) == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	sorted := sortedByTime(bets)
	early := sorted[:max(1, len(sorted)/10)]
	prior := domain.Clamp(domain.MedianOdds(early), 0.01, 0.99)
	priorLogOdds := math.Log(prior / (1 - prior))

	// el peso se normaliza por n para que el acumulador no sature en mercados grandes
	n := float64(len(bets))
	public, smart := priorLogOdds, priorLogOdds
	smartCount := 0
	for _, b := range bets {
		step := b.Amount / t17AmountNormalizer / n * t17UpdateStep
		if b.Side == domain.SideNo {
			step = -step
		}
		public += step

		r := wallets.Rationality(b.Wallet, defaultRationality)
		if r < t17RationalityCutoff {
			continue
		}
		smartCount++
		smart += step * r
	}

	publicPost := sigmoid(domain.Clamp(public, -t17MaxLogOdds, t17MaxLogOdds))
	smartPost := sigmoid(domain.Clamp(smart, -t17MaxLogOdds, t17MaxLogOdds))
	divergence := smartPost - publicPost

	return domain.MethodResult{
		Signal:       clampSignal(divergence * 5),
		Confidence:   clampUnit(math.Abs(divergence)*3 + 0.1),
		FilteredBets: bets,
		Metadata: map[string]any{
			"prior":            prior,
			"public_posterior": publicPost,
			"smart_posterior":  smartPost,
			"divergence":       divergence,
			"smart_bets":       smartCount,
		},
	}, nil
}

// t19ZScoreOutliers pondera las apuestas atípicas (|z| > 2.5) por la
// racionalidad de su wallet: outlier racional es dinero sharp, irracional es ruido.
func t19ZScoreOutliers(_ domain.Market, bets []domain.Bet, wallets domain.WalletView) (domain.MethodResult, error) {
	if len(bets) < 5 {
		return domain.Neutral(bets, 0, nil), nil
	}

	amounts := make([]float64, len(bets))
	for i, b := range bets {
		amounts[i] = b.Amount
	}
	mean, std := meanStd(amounts)
	if std == 0 {
		return domain.Neutral(bets, 0, nil), nil
	}

	var yesW, noW float64
	outliers := 0
	for _, b := range bets {
		if math.Abs(b.Amount-mean)/std <= t19ZScoreThreshold {
			continue
		}
		outliers++
		w := b.Amount * wallets.Rationality(b.Wallet, defaultRationality)
		if b.Side == domain.SideYes {
			yesW += w
		} else {
			noW += w
		}
	}

	var signal float64
	if total := yesW + noW; total > 0 {
		signal = (yesW - noW) / total
	}
	return domain.MethodResult{
		Signal:       signal,
		Confidence:   clampUnit(float64(outliers) / 5),
		FilteredBets: bets,
		Metadata: map[string]any{
			"outlier_count": outliers,
			"mean_amount":   mean,
			"std_amount":    std,
		},
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
