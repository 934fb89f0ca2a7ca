package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "NotFoundError")
	m.RecordAuthDecision("admin_only", "deny")
}

func TestRecordAuthDecision(t *testing.T) {
	m := NewMetrics()
	m.RecordAuthDecision("owner_or_admin", "allow")
	m.RecordAuthDecision("owner_or_admin", "allow")
	m.RecordAuthDecision("owner_or_admin", "deny")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authDecisions.WithLabelValues("owner_or_admin", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authDecisions.WithLabelValues("owner_or_admin", "deny")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/users", "GET", 200, 5*time.Millisecond)

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "user_service_http_requests_total")
}
