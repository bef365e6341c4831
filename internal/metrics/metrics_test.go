package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMaterialization(t *testing.T) {
	before := testutil.ToFloat64(materializations.WithLabelValues(OutcomeRepaired))
	RecordMaterialization(OutcomeRepaired)
	assert.Equal(t, before+1, testutil.ToFloat64(materializations.WithLabelValues(OutcomeRepaired)))
}

func TestRecordSerializerRun(t *testing.T) {
	before := testutil.ToFloat64(serializerRuns.WithLabelValues(SerializerExitErr))
	RecordSerializerRun(SerializerExitErr, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(serializerRuns.WithLabelValues(SerializerExitErr)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/api/tree", http.StatusOK, time.Millisecond)
	SetCachedFiles(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "assethub_http_requests_total")
	assert.Contains(t, body, "assethub_cached_files 3")
}
