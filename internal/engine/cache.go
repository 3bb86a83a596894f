package engine

import (
	"strconv"

	cache "github.com/patrickmn/go-cache"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
)

// evalMemo memoriza backtests dentro de un run. La clave usa el orden de
// ejecución (Key, no ID): dos órdenes distintos del mismo set pueden dar
// resultados distintos cuando hay detectores que filtran.
// Solo es válido para un dataset; el optimizer lo vacía al empezar cada run.
type evalMemo struct {
	c *cache.Cache
}

func newEvalMemo() *evalMemo {
	return &evalMemo{c: cache.New(cache.NoExpiration, 0)}
}

func memoKey(combo domain.Combo, cutoff float64) string {
	return combo.Key() + "@" + strconv.FormatFloat(cutoff, 'g', -1, 64)
}

func (m *evalMemo) get(key string) (domain.ComboResult, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return domain.ComboResult{}, false
	}
	r, ok := v.(domain.ComboResult)
	if ok {
		metrics.RecordCacheHit()
	}
	return r, ok
}

func (m *evalMemo) set(key string, r domain.ComboResult) {
	m.c.Set(key, r, cache.NoExpiration)
}

func (m *evalMemo) flush() {
	m.c.Flush()
}

func (m *evalMemo) size() int {
	return m.c.ItemCount()
}
