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

func TestRetryAttempts_CountsPerOperation(t *testing.T) {
	before := testutil.ToFloat64(RetryAttempts.WithLabelValues("metrics.test"))
	RetryAttempts.WithLabelValues("metrics.test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RetryAttempts.WithLabelValues("metrics.test")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	OrdersAutoCompleted.Add(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cafe_orders_auto_completed_total"))
}
