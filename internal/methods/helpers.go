package methods

import (
	"math"
	"sort"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// volumeSignal devuelve (yes − no) / total por volumen apostado, en [-1, 1].
func volumeSignal(bets []domain.Bet) (signal, yesVol, noVol float64) {
	for _, b := range bets {
		if b.Side == domain.SideYes {
			yesVol += b.Amount
		} else {
			noVol += b.Amount
		}
	}
	total := yesVol + noVol
	if total == 0 {
		return 0, yesVol, noVol
	}
	return (yesVol - noVol) / total, yesVol, noVol
}

// sortedByTime devuelve una copia de bets ordenada por timestamp ascendente.
func sortedByTime(bets []domain.Bet) []domain.Bet {
	out := make([]domain.Bet, len(bets))
	copy(out, bets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// groupByWallet agrupa las apuestas por wallet conservando el orden.
func groupByWallet(bets []domain.Bet) map[string][]domain.Bet {
	out := make(map[string][]domain.Bet)
	for _, b := range bets {
		out[b.Wallet] = append(out[b.Wallet], b)
	}
	return out
}

// excludeWallets devuelve las apuestas cuyas wallets no están en excluded.
func excludeWallets(bets []domain.Bet, excluded map[string]bool) []domain.Bet {
	if len(excluded) == 0 {
		return bets
	}
	out := make([]domain.Bet, 0, len(bets))
	for _, b := range bets {
		if !excluded[b.Wallet] {
			out = append(out, b)
		}
	}
	return out
}

// meanStd devuelve media y desviación estándar poblacional.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// clampSignal limita una señal a [-1, 1].
func clampSignal(s float64) float64 {
	return domain.Clamp(s, -1, 1)
}

// clampUnit limita un valor a [0, 1].
func clampUnit(v float64) float64 {
	return domain.Clamp(v, 0, 1)
}
