// Package fixtures genera datasets sintéticos deterministas para poblar la base
// de datos (`oracle seed`) o hacer runs en seco sin histórico real.
//
// El generador planta señales conocidas: wallets "insider" que apuestan fuerte,
// pronto y casi siempre del lado ganador; wallets emocionales con cantidades
// redondas; y odds que derivan hacia el resultado a lo largo de la vida del mercado.
package fixtures

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/ports"
)

// Config controla el tamaño y la mezcla del dataset.
type Config struct {
	Seed            uint64
	Markets         int
	BetsPerMarket   int // media; cada mercado varía ±50%
	Wallets         int
	InsiderShare    float64
	EmotionalShare  float64
	UnresolvedShare float64
	Start           time.Time
}

// DefaultConfig devuelve un dataset mediano: 120 mercados, ~40 apuestas, 300 wallets.
func DefaultConfig() Config {
	return Config{
		Seed:            42,
		Markets:         120,
		BetsPerMarket:   40,
		Wallets:         300,
		InsiderShare:    0.05,
		EmotionalShare:  0.30,
		UnresolvedShare: 0.10,
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate comprueba que el generador pueda producir algo coherente.
func (c Config) Validate() error {
	switch {
	case c.Markets <= 0 || c.BetsPerMarket <= 0 || c.Wallets <= 0:
		return fmt.Errorf("markets, bets per market and wallets must be > 0")
	case c.InsiderShare < 0 || c.EmotionalShare < 0 || c.InsiderShare+c.EmotionalShare > 1:
		return fmt.Errorf("wallet shares must be >= 0 and sum to <= 1")
	case c.UnresolvedShare < 0 || c.UnresolvedShare >= 1:
		return fmt.Errorf("unresolved share must be in [0,1)")
	}
	return nil
}

type walletKind int

const (
	kindRegular walletKind = iota
	kindInsider
	kindEmotional
)

// Synthetic es el resultado del generador.
type Synthetic struct {
	Markets []domain.Market
	Bets    []domain.Bet
	Wallets []domain.Wallet
}

// Dataset devuelve los datos como un domain.Dataset en memoria. Las estadísticas
// de wallet no se calculan aquí: en memoria solo llevan los flags.
func (s Synthetic) Dataset() domain.Dataset {
	ds := domain.Dataset{
		Markets:      s.Markets,
		BetsByMarket: make(map[string][]domain.Bet, len(s.Markets)),
		Wallets:      make(map[string]domain.Wallet, len(s.Wallets)),
	}
	for _, b := range s.Bets {
		ds.BetsByMarket[b.MarketID] = append(ds.BetsByMarket[b.MarketID], b)
	}
	for _, w := range s.Wallets {
		ds.Wallets[w.Address] = w
	}
	return ds
}

// Generate produce el dataset. Misma Config ⇒ mismo resultado.
func Generate(cfg Config) (Synthetic, error) {
	if err := cfg.Validate(); err != nil {
		return Synthetic{}, fmt.Errorf("fixtures.Generate: %w", err)
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	wallets, kinds := genWallets(rng, cfg)
	byKind := map[walletKind][]string{}
	for _, w := range wallets {
		byKind[kinds[w.Address]] = append(byKind[kinds[w.Address]], w.Address)
	}

	out := Synthetic{Wallets: wallets}
	var betID int64
	for i := range cfg.Markets {
		m := genMarket(rng, cfg, i)
		out.Markets = append(out.Markets, m)

		n := max(1, cfg.BetsPerMarket/2+rng.IntN(cfg.BetsPerMarket+1))
		bets := make([]domain.Bet, 0, n)
		for range n {
			betID++
			bets = append(bets, genBet(rng, m, betID, pickWallet(rng, byKind, cfg), kinds))
		}
		sort.SliceStable(bets, func(a, b int) bool { return bets[a].Timestamp.Before(bets[b].Timestamp) })
		out.Bets = append(out.Bets, bets...)
	}
	return out, nil
}

func genWallets(rng *rand.Rand, cfg Config) ([]domain.Wallet, map[string]walletKind) {
	wallets := make([]domain.Wallet, cfg.Wallets)
	kinds := make(map[string]walletKind, cfg.Wallets)
	insiders := int(math.Round(float64(cfg.Wallets) * cfg.InsiderShare))
	emotional := int(math.Round(float64(cfg.Wallets) * cfg.EmotionalShare))

	for i := range wallets {
		addr := fmt.Sprintf("0x%016x%016x", rng.Uint64(), rng.Uint64())
		kind := kindRegular
		switch {
		case i < insiders:
			kind = kindInsider
		case i < insiders+emotional:
			kind = kindEmotional
		}
		kinds[addr] = kind
		wallets[i] = domain.Wallet{
			Address: addr,
			// la mitad de los insiders ya están detectados; algún regular es un sandpit conocido
			FlaggedSuspicious: kind == kindInsider && i%2 == 0,
			FlaggedSandpit:    kind == kindRegular && rng.Float64() < 0.02,
		}
	}
	return wallets, kinds
}

func genMarket(rng *rand.Rand, cfg Config, i int) domain.Market {
	id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "oraclebot-market-%d-%d", cfg.Seed, i))
	created := cfg.Start.Add(time.Duration(i)*12*time.Hour + time.Duration(rng.IntN(6*60))*time.Minute)
	lifespan := time.Duration(3+rng.IntN(28)) * 24 * time.Hour

	m := domain.Market{
		ID:        id.String(),
		Title:     fmt.Sprintf("Synthetic market #%d", i+1),
		CreatedAt: created,
		EndDate:   created.Add(lifespan),
		Resolved:  true,
		Outcome:   domain.SideNo,
	}
	if rng.Float64() < 0.5 {
		m.Outcome = domain.SideYes
	}
	if rng.Float64() < cfg.UnresolvedShare {
		m.Resolved = false
		m.Outcome = ""
	}
	return m
}

func pickWallet(rng *rand.Rand, byKind map[walletKind][]string, cfg Config) string {
	// los insiders apuestan poco (~3% de las apuestas); el resto se reparte
	r := rng.Float64()
	switch {
	case r < 0.03 && len(byKind[kindInsider]) > 0:
		return pick(rng, byKind[kindInsider])
	case r < 0.03+cfg.EmotionalShare && len(byKind[kindEmotional]) > 0:
		return pick(rng, byKind[kindEmotional])
	case len(byKind[kindRegular]) > 0:
		return pick(rng, byKind[kindRegular])
	case len(byKind[kindEmotional]) > 0:
		return pick(rng, byKind[kindEmotional])
	default:
		return pick(rng, byKind[kindInsider])
	}
}

func pick(rng *rand.Rand, xs []string) string {
	return xs[rng.IntN(len(xs))]
}

// genBet genera una apuesta. target es el resultado real (o uno aleatorio si el
// mercado no está resuelto): las odds derivan hacia él con el tiempo.
func genBet(rng *rand.Rand, m domain.Market, id int64, wallet string, kinds map[string]walletKind) domain.Bet {
	target := 0.0
	if m.Outcome == domain.SideYes || (m.Outcome == "" && rng.Float64() < 0.5) {
		target = 1
	}

	kind := kinds[wallet]
	progress := rng.Float64()
	if kind == kindInsider {
		progress *= 0.6 // entran pronto
	}
	odds := 0.5 + (target-0.5)*progress*0.8 + (rng.Float64()-0.5)*0.2
	odds = math.Round(domain.Clamp(odds, 0.02, 0.98)*1000) / 1000

	side := domain.SideNo
	var amount float64
	switch kind {
	case kindInsider:
		if (target == 1) == (rng.Float64() < 0.85) {
			side = domain.SideYes
		}
		amount = 500 + math.Round(rng.Float64()*2500)
	case kindEmotional:
		// siguen a la mayoría con cantidades redondas
		if rng.Float64() < odds {
			side = domain.SideYes
		}
		amount = float64(50 * (1 + rng.IntN(10)))
	default:
		if rng.Float64() < odds {
			side = domain.SideYes
		}
		amount = math.Round(math.Exp(1.5+rng.Float64()*4.5)*100) / 100
	}

	return domain.Bet{
		ID:        id,
		MarketID:  m.ID,
		Wallet:    wallet,
		Side:      side,
		Amount:    amount,
		Odds:      odds,
		Timestamp: m.CreatedAt.Add(time.Duration(progress * float64(m.Lifespan()))),
	}
}

// Stats resume lo que escribió Seed.
type Stats struct {
	Markets int
	Bets    int
	NewBets int
	Wallets int
}

// Seed genera el dataset y lo escribe: wallets (con flags), mercados, apuestas
// y recálculo de estadísticas de wallet.
func Seed(ctx context.Context, w ports.DatasetWriter, cfg Config) (Stats, error) {
	syn, err := Generate(cfg)
	if err != nil {
		return Stats{}, err
	}
	if err := w.SaveWallets(ctx, syn.Wallets); err != nil {
		return Stats{}, fmt.Errorf("fixtures.Seed: wallets: %w", err)
	}
	if err := w.SaveMarkets(ctx, syn.Markets); err != nil {
		return Stats{}, fmt.Errorf("fixtures.Seed: markets: %w", err)
	}
	inserted, err := w.SaveBets(ctx, syn.Bets)
	if err != nil {
		return Stats{}, fmt.Errorf("fixtures.Seed: bets: %w", err)
	}
	refreshed, err := w.RefreshWalletStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("fixtures.Seed: wallet stats: %w", err)
	}
	return Stats{
		Markets: len(syn.Markets),
		Bets:    len(syn.Bets),
		NewBets: inserted,
		Wallets: refreshed,
	}, nil
}
