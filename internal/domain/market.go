package domain

import (
	"errors"
	"fmt"
	"time"
)

// Side es el lado de una apuesta o el resultado de un mercado binario.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid devuelve true si el lado es YES o NO.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// ErrInvalidMarket se devuelve cuando un mercado viola sus invariantes.
var ErrInvalidMarket = errors.New("invalid market")

// Market representa un mercado de predicción binario de Polymarket.
type Market struct {
	ID          string
	Title       string
	Description string
	CreatedAt   time.Time
	EndDate     time.Time
	Resolved    bool
	Outcome     Side // vacío mientras no se resuelve
}

// Lifespan devuelve la duración total del mercado (end − created).
// Puede ser cero o negativa si las fechas son inconsistentes.
func (m Market) Lifespan() time.Duration {
	return m.EndDate.Sub(m.CreatedAt)
}

// HasOutcome devuelve true si el mercado está resuelto con un resultado conocido.
func (m Market) HasOutcome() bool {
	return m.Resolved && m.Outcome.Valid()
}

// Validate comprueba el invariante resolved ⇒ outcome ≠ "".
func (m Market) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMarket)
	}
	if m.Resolved && !m.Outcome.Valid() {
		return fmt.Errorf("%w: %s resolved without outcome", ErrInvalidMarket, m.ID)
	}
	if m.Outcome != "" && !m.Outcome.Valid() {
		return fmt.Errorf("%w: %s has outcome %q", ErrInvalidMarket, m.ID, m.Outcome)
	}
	return nil
}

// Bet es una apuesta individual. Odds es la probabilidad YES al ejecutarse (0–1).
type Bet struct {
	ID        int64
	MarketID  string
	Wallet    string
	Side      Side
	Amount    float64
	Odds      float64
	Timestamp time.Time
}

// Wallet son las estadísticas agregadas de una wallet. El engine solo las lee.
type Wallet struct {
	Address           string
	FirstSeen         time.Time
	TotalBets         int
	TotalVolume       float64
	WinRate           float64
	RationalityScore  float64 // 0–1, calculado fuera del engine
	FlaggedSuspicious bool
	FlaggedSandpit    bool
}
