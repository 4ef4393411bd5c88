package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"goinsight/domain/insight"
	"goinsight/internal/api"
	"goinsight/internal/config"
	"goinsight/internal/engine"
	"goinsight/internal/testkit"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := &config.Catalog{Metrics: []insight.MetricConfig{testkit.TransitMetric()}}
	source := api.Static(testkit.TransitDataset())
	eng := engine.New()
	apiHandler := api.NewHandler(eng, catalog, source, 0).Router()

	app, err := NewApp(Config{Port: "0"}, eng, catalog, source, apiHandler)
	require.NoError(t, err)
	return app
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndex(t *testing.T) {
	app := newTestApp(t)

	w := get(t, app.Handler(), "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Public transit routes")
	assert.Contains(t, body, `href="/reports/transit_routes?entity=F"`)
}

func TestReport_SingleEntity(t *testing.T) {
	app := newTestApp(t)

	w := get(t, app.Handler(), "/reports/transit_routes?entity=F")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1")
	assert.Contains(t, body, "ranking 6 of 9")
	assert.Contains(t, body, "/reports/transit_routes/workbook?entity=F")
}

func TestReport_SubsetFromQuery(t *testing.T) {
	app := newTestApp(t)

	w := get(t, app.Handler(), "/reports/transit_routes/markdown?area_type=urban")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scope: subset")
}

func TestReport_EscapesFilterValues(t *testing.T) {
	app := newTestApp(t)

	q := url.Values{}
	q.Set("entity", "<script>alert(1)</script>")
	q.Set("area_type", `"><img src=x onerror=alert(2)>`)
	w := get(t, app.Handler(), "/reports/transit_routes?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "<script>alert")
	assert.NotContains(t, body, "<img src=x")
	assert.Contains(t, body, "<h1")
}

func TestReport_Workbook(t *testing.T) {
	app := newTestApp(t)

	w := get(t, app.Handler(), "/reports/transit_routes/workbook?entity=F")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transit_routes.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Evidence")
}

func TestReport_UnknownMetric(t *testing.T) {
	app := newTestApp(t)
	w := get(t, app.Handler(), "/reports/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIIsMounted(t *testing.T) {
	app := newTestApp(t)
	w := get(t, app.Handler(), "/api/metrics/transit_routes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"group_column":"region"`)
}

func TestStart_StopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	app.config.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, app.Start(ctx))
}
