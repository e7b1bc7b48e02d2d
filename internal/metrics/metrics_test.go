package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Counters(t *testing.T) {
	m := NewManager("test")

	m.DonationCreated()
	m.Transition("assigned")
	m.Transition("assigned")
	m.PickupCodeIssued()
	m.PickupCodeFailed("mail")
	m.DonationsExpired(3)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonationsCreatedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PickupCodesIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PickupCodeFailures.WithLabelValues("mail")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DonationsExpiredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.DonationCreated()
		m.Transition("picked")
		m.MessageSent()
		m.ConnectionOpened()
	})
}

func TestManager_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager("test")

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_request_duration_seconds_count{code="204",method="GET",route="/ping"} 1`)
}
