package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersExposed(t *testing.T) {
	before := testutil.ToFloat64(PDFGenerated.WithLabelValues("BLI_01"))
	PDFGenerated.WithLabelValues("BLI_01").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(PDFGenerated.WithLabelValues("BLI_01")), 0.001)

	NotificationsSent.WithLabelValues("NEW_SUBMISSION", "SENT").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ptms_pdf_generated_total")
	assert.Contains(t, rec.Body.String(), `ptms_notifications_sent_total{status="SENT",type="NEW_SUBMISSION"}`)
}
