package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistry_Idempotent(t *testing.T) {
	a := InitRegistry()
	b := GetRegistry()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestRecordComboEvaluated(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(CombosEvaluatedTotal.WithLabelValues("tier1"))
	RecordComboEvaluated("tier1", 0.25)
	RecordComboEvaluated("tier1", 0.30)
	assert.Equal(t, before+2, testutil.ToFloat64(CombosEvaluatedTotal.WithLabelValues("tier1")))
}

func TestRecordCounters(t *testing.T) {
	InitRegistry()

	skipped := testutil.ToFloat64(MarketsSkippedTotal.WithLabelValues("too_few_bets"))
	RecordMarketSkipped("too_few_bets")
	assert.Equal(t, skipped+1, testutil.ToFloat64(MarketsSkippedTotal.WithLabelValues("too_few_bets")))

	failures := testutil.ToFloat64(DetectorFailuresTotal.WithLabelValues("T17"))
	RecordDetectorFailure("T17")
	assert.Equal(t, failures+1, testutil.ToFloat64(DetectorFailuresTotal.WithLabelValues("T17")))

	hits := testutil.ToFloat64(CacheHitsTotal)
	RecordCacheHit()
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHitsTotal))

	UpdateBestFitness("tier3", 0.42)
	assert.Equal(t, 0.42, testutil.ToFloat64(BestFitness.WithLabelValues("tier3")))

	assert.NotPanics(t, func() { RecordRunDuration(12) })
}

func TestHandler_ExposesNamespace(t *testing.T) {
	InitRegistry()
	RecordComboEvaluated("tier2", 0.1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "oraclebot_combos_evaluated_total"))
}
