package ports

import (
	"context"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// DatasetProvider carga los datos históricos sobre los que se hace el backtest.
type DatasetProvider interface {
	// LoadResolved devuelve los mercados resueltos con al menos minBets apuestas,
	// sus apuestas y el universo de wallets que apostó en ellos.
	LoadResolved(ctx context.Context, minBets int) (domain.Dataset, error)
}

// DatasetWriter ingiere datos históricos. El scraping queda fuera; el seed
// sintético y cualquier importador externo escriben por aquí.
type DatasetWriter interface {
	SaveMarkets(ctx context.Context, markets []domain.Market) error

	// SaveBets inserta las apuestas ignorando duplicados y devuelve cuántas eran nuevas.
	SaveBets(ctx context.Context, bets []domain.Bet) (int, error)

	SaveWallets(ctx context.Context, wallets []domain.Wallet) error

	// RefreshWalletStats recalcula total_bets, volumen, win rate y rationality
	// a partir de las apuestas sobre mercados resueltos.
	RefreshWalletStats(ctx context.Context) (int, error)
}
