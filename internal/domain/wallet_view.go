package domain

import "sort"

// WalletView es un snapshot inmutable del universo de wallets restringido a las
// direcciones que aparecen en un conjunto de apuestas. Cada mercado del backtest
// recibe su propia vista: nunca se pasa el universo completo a un detector.
type WalletView struct {
	wallets map[string]Wallet
	addrs   []string // ordenadas, para iterar de forma determinista
}

// NewWalletView construye la vista con las wallets del universo que apostaron en bets.
// Las direcciones sin estadísticas conocidas se omiten.
func NewWalletView(universe map[string]Wallet, bets []Bet) WalletView {
	v := WalletView{wallets: make(map[string]Wallet)}
	for _, b := range bets {
		if _, seen := v.wallets[b.Wallet]; seen {
			continue
		}
		w, ok := universe[b.Wallet]
		if !ok {
			continue
		}
		v.wallets[b.Wallet] = w
		v.addrs = append(v.addrs, b.Wallet)
	}
	sort.Strings(v.addrs)
	return v
}

// Get devuelve la wallet de la dirección dada si está en la vista.
func (v WalletView) Get(addr string) (Wallet, bool) {
	w, ok := v.wallets[addr]
	return w, ok
}

// Rationality devuelve el rationality score de la wallet, o def si no se conoce.
func (v WalletView) Rationality(addr string, def float64) float64 {
	if w, ok := v.wallets[addr]; ok {
		return w.RationalityScore
	}
	return def
}

// Len devuelve el número de wallets de la vista.
func (v WalletView) Len() int {
	return len(v.addrs)
}

// Addresses devuelve una copia de las direcciones ordenadas.
func (v WalletView) Addresses() []string {
	out := make([]string, len(v.addrs))
	copy(out, v.addrs)
	return out
}

// Wallets devuelve las wallets de la vista en orden de dirección.
func (v WalletView) Wallets() []Wallet {
	out := make([]Wallet, 0, len(v.addrs))
	for _, a := range v.addrs {
		out = append(out, v.wallets[a])
	}
	return out
}
