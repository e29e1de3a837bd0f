package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWith(reg)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/v1/verify/:token", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/verify/abc", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/verify/:token", "200"))
	assert.Equal(t, float64(2), count)
}

func TestNewHTTPMetricsWithReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewHTTPMetricsWith(reg)
	second := NewHTTPMetricsWith(reg)
	assert.Same(t, first.requests, second.requests)
}
