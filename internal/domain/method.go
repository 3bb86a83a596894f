package domain

// MethodResult es la salida de un detector para un mercado.
type MethodResult struct {
	Signal     float64 // -1 (NO fuerte) a 1 (YES fuerte)
	Confidence float64 // 0 a 1
	// FilteredBets, si no está vacío, reemplaza el conjunto de apuestas que ven
	// los detectores siguientes de la cadena.
	FilteredBets []Bet
	Metadata     map[string]any
}

// Method es el contrato de un detector: produce una señal direccional y una
// confianza, y opcionalmente estrecha las apuestas relevantes.
// Un detector falla devolviendo error (o con panic); la cadena lo trata igual.
type Method func(market Market, bets []Bet, wallets WalletView) (MethodResult, error)

// Neutral devuelve un resultado sin señal que reenvía las apuestas recibidas.
func Neutral(bets []Bet, confidence float64, meta map[string]any) MethodResult {
	return MethodResult{Signal: 0, Confidence: confidence, FilteredBets: bets, Metadata: meta}
}

// Clamp limita v al rango [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
