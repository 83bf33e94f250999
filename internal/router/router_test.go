package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpy/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() http.Handler {
	m := metrics.New(prometheus.NewRegistry())
	opts := service.Options{Metrics: m}
	th := handler.NewTicketHandler(handler.Deps{
		Ticket: service.NewTicketService(repository.NewMemory(), opts),
	})
	ah := handler.NewAuthHandler(service.NewAuthService(opts))
	return New(ah, th, m)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter()

	w := get(r, paths.PathHealth)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "helpdesk-service", body["service"])

	w = get(r, paths.PathReady)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestOpenAPISpecIsServed(t *testing.T) {
	r := newTestRouter()
	w := get(r, paths.PathSwagger+"/openapi.json")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Paths map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	for _, p := range []string{
		"/api/v1/auth/login",
		"/api/v1/tickets",
		"/api/v1/tickets/{id}",
		"/api/v1/tickets/{id}/messages",
		"/api/v1/tickets/{id}/resolve",
		"/api/v1/tickets/{id}/cancel",
	} {
		assert.Contains(t, doc.Paths, p)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter()
	w := get(r, PathMetrics)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "# HELP"), "prometheus exposition format")
}

func TestAPIRoutesAreMounted(t *testing.T) {
	r := newTestRouter()
	w := get(r, "/api/v1/tickets?role=agent")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = get(r, "/api/v1/tickets/1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
