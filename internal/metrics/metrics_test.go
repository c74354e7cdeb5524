package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDispatch(200, 10*time.Millisecond)
	c.RecordDispatch(200, 20*time.Millisecond)
	c.RecordDispatch(401, time.Millisecond)
	c.RecordDispatchFailure("unreachable")
	c.RecordForward(502, time.Millisecond)
	c.RecordHistoryMutation("add")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.dispatchStatus.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchStatus.WithLabelValues("401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchFail.WithLabelValues("unreachable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.forwardStatus.WithLabelValues("502")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.historyMutation.WithLabelValues("add")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHistoryMutation("clear")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mealtrack_history_mutations_total{op="clear"} 1`)
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordDispatch(200, time.Second)
	r.RecordHistoryMutation("add")
}
