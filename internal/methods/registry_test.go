package methods

import (
	"testing"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	return domain.Neutral(bets, 0, nil), nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A1", "A", "first", noop))
	require.NoError(t, r.Register("B1", "B", "second", noop))
	require.NoError(t, r.Register("A2", "A", "third", noop))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"A1", "B1", "A2"}, r.IDs())
	assert.Equal(t, []string{"A", "B"}, r.Categories())
	assert.Equal(t, []string{"A1", "A2"}, r.ByCategory("A"))
	assert.Empty(t, r.ByCategory("Z"))

	fn, ok := r.Get("B1")
	require.True(t, ok)
	assert.NotNil(t, fn)
	_, ok = r.Get("nope")
	assert.False(t, ok)

	info, ok := r.Info("A2")
	require.True(t, ok)
	assert.Equal(t, "third", info.Description)
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A1", "A", "", noop))

	assert.Error(t, r.Register("A1", "A", "", noop), "duplicate")
	assert.Error(t, r.Register("", "A", "", noop), "empty id")
	assert.Error(t, r.Register("A3", "", "", noop), "empty category")
	assert.Error(t, r.Register("A4", "A", "", nil), "nil fn")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ValidateCombo(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A1", "A", "", noop))

	assert.NoError(t, r.ValidateCombo(domain.NewCombo("A1")))
	assert.ErrorIs(t, r.ValidateCombo(nil), ErrEmptyCombo)
	assert.ErrorIs(t, r.ValidateCombo(domain.NewCombo("A1", "X9")), ErrUnknownMethod)
}

func TestRegistry_IDsReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A1", "A", "", noop))
	ids := r.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"A1"}, r.IDs())
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, 15, r.Len())
	assert.Equal(t, []string{"S", "D", "E", "T", "P", "M"}, r.Categories())
	assert.Equal(t, []string{"E10", "E11", "E15"}, r.ByCategory(CategoryEmotional))

	// registrar dos veces los builtins en el mismo registry falla
	assert.Error(t, RegisterBuiltins(r))
}
