package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequests)

	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/deliveries/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deliveries/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if after := testutil.CollectAndCount(HTTPRequests); after <= before {
		t.Errorf("expected request counter series to grow, %d -> %d", before, after)
	}
	// The route label must be the template, not the raw path.
	v := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/deliveries/:id", "200"))
	if v < 1 {
		t.Errorf("expected at least one request on templated route, got %f", v)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	MaterializerOccurrences.Inc()

	e := echo.New()
	e.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected exposition body")
	}
}
