package methods

// markov.go — M: análisis de transiciones temporales.
// Las apuestas se reparten en ventanas de igual duración, cada ventana se
// clasifica en uno de tres estados y se estima la matriz de transición.

import (
	"math"
	"time"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

const numStates = 3

// estados de M26 (precio)
const (
	stateLow = iota
	stateMid
	stateHigh
)

// estados de M27 (flujo)
const (
	stateYesHeavy = iota
	stateBalanced
	stateNoHeavy
)

const (
	m26MinBets        = 10
	m26Windows        = 5
	m26LowThreshold   = 0.35
	m26HighThreshold  = 0.65
	m26Trending       = 0.33
	m27MinBets        = 12
	m27Windows        = 5
	m27FlowThreshold  = 0.5
	m27Momentum       = 0.60
	m27ReversalMin    = 0.3
	markovMinSpan     = time.Hour
	markovMinPopulate = 3
)

// transitionMatrix devuelve P(j | i) estimada a partir de la secuencia de estados.
// Las filas sin transiciones quedan uniformes.
func transitionMatrix(states []int) [numStates][numStates]float64 {
	var counts [numStates][numStates]int
	for i := 0; i+1 < len(states); i++ {
		counts[states[i]][states[i+1]]++
	}

	var m [numStates][numStates]float64
	for i, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		for j, c := range row {
			if total == 0 {
				m[i][j] = 1.0 / numStates
			} else {
				m[i][j] = float64(c) / float64(total)
			}
		}
	}
	return m
}

// timeWindows reparte las apuestas ordenadas en n ventanas de igual duración.
// Si todas comparten timestamp van a la primera ventana. bets no puede estar vacío.
func timeWindows(sorted []domain.Bet, n int) [][]domain.Bet {
	windows := make([][]domain.Bet, n)
	start := sorted[0].Timestamp
	span := sorted[len(sorted)-1].Timestamp.Sub(start)
	if span <= 0 {
		windows[0] = sorted
		return windows
	}
	for _, b := range sorted {
		idx := int(float64(b.Timestamp.Sub(start)) / float64(span) * float64(n))
		idx = min(idx, n-1)
		windows[idx] = append(windows[idx], b)
	}
	return windows
}

func timeSpan(sorted []domain.Bet) time.Duration {
	return sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp)
}

// m26MarketPhases detecta si el precio persiste en su régimen (tendencia) y
// apuesta a favor del último estado observado.
func m26MarketPhases(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	if len(bets) < m26MinBets {
		return domain.Neutral(bets, 0, map[string]any{"reason": "insufficient bets"}), nil
	}
	sorted := sortedByTime(bets)
	if timeSpan(sorted) < markovMinSpan {
		return domain.Neutral(bets, 0, map[string]any{"reason": "time span < 1 hour"}), nil
	}

	states := make([]int, 0, m26Windows)
	prev := stateMid
	populated := 0
	for _, w := range timeWindows(sorted, m26Windows) {
		if len(w) == 0 {
			// una ventana vacía hereda el estado anterior
			states = append(states, prev)
			continue
		}
		populated++
		med := domain.MedianOdds(w)
		s := stateMid
		switch {
		case med < m26LowThreshold:
			s = stateLow
		case med > m26HighThreshold:
			s = stateHigh
		}
		states = append(states, s)
		prev = s
	}
	if populated < markovMinPopulate {
		return domain.Neutral(bets, 0, map[string]any{"reason": "fewer than 3 populated windows"}), nil
	}

	tm := transitionMatrix(states)
	trending := (tm[stateLow][stateLow] + tm[stateMid][stateMid] + tm[stateHigh][stateHigh]) / 3
	last := states[len(states)-1]

	signal, confidence := 0.0, 0.1
	if trending > m26Trending {
		switch last {
		case stateHigh:
			signal = 1
		case stateLow:
			signal = -1
		}
		confidence = clampUnit((trending - 0.33) / 0.34)
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata: map[string]any{
			"trending_score": trending,
			"last_state":     last,
		},
	}, nil
}

// m27FlowMomentum clasifica cada ventana por flujo neto (YES − NO) y busca
// persistencia (momentum) o alternancia (reversión) entre ventanas direccionales.
func m27FlowMomentum(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	if len(bets) < m27MinBets {
		return domain.Neutral(bets, 0, map[string]any{"reason": "insufficient bets"}), nil
	}
	sorted := sortedByTime(bets)
	if timeSpan(sorted) < markovMinSpan {
		return domain.Neutral(bets, 0, map[string]any{"reason": "time span < 1 hour"}), nil
	}

	windows := timeWindows(sorted, m27Windows)
	flows := make([]float64, len(windows))
	var absFlows []float64
	for i, w := range windows {
		for _, b := range w {
			if b.Side == domain.SideYes {
				flows[i] += b.Amount
			} else {
				flows[i] -= b.Amount
			}
		}
		if flows[i] != 0 {
			absFlows = append(absFlows, math.Abs(flows[i]))
		}
	}
	if len(absFlows) < 2 {
		return domain.Neutral(bets, 0.1, map[string]any{"reason": "no directional flow"}), nil
	}
	threshold := domain.Median(absFlows) * m27FlowThreshold

	states := make([]int, len(flows))
	directional := 0
	for i, f := range flows {
		switch {
		case f > threshold:
			states[i] = stateYesHeavy
			directional++
		case f < -threshold:
			states[i] = stateNoHeavy
			directional++
		default:
			states[i] = stateBalanced
		}
	}
	if directional < markovMinPopulate {
		return domain.Neutral(bets, 0.1, map[string]any{"reason": "fewer than 3 directional windows"}), nil
	}

	tm := transitionMatrix(states)
	momentum := (tm[stateYesHeavy][stateYesHeavy] + tm[stateNoHeavy][stateNoHeavy]) / 2
	reversal := (tm[stateYesHeavy][stateNoHeavy] + tm[stateNoHeavy][stateYesHeavy]) / 2

	lastDir := stateBalanced
	for i := len(states) - 1; i >= 0; i-- {
		if states[i] != stateBalanced {
			lastDir = states[i]
			break
		}
	}
	dir := 0.0
	switch lastDir {
	case stateYesHeavy:
		dir = 1
	case stateNoHeavy:
		dir = -1
	}

	signal, confidence, regime := 0.0, 0.1, "neutral"
	switch {
	case momentum > m27Momentum:
		signal, confidence, regime = dir, clampUnit(momentum*1.5), "momentum"
	case reversal > momentum && reversal > m27ReversalMin:
		signal, confidence, regime = -dir, clampUnit(reversal), "reversal"
	}

	return domain.MethodResult{
		Signal:       signal,
		Confidence:   confidence,
		FilteredBets: bets,
		Metadata: map[string]any{
			"momentum_score": momentum,
			"reversal_score": reversal,
			"regime":         regime,
		},
	}, nil
}
