package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/cache"
	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/engine"
	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/models"
	"github.com/bcinsights/bcinsights/internal/services"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/utils"
)

func newTestDashboard(t *testing.T) *services.DashboardService {
	t.Helper()
	logger := utils.Discard()
	loader := dataset.NewLoader("../../testdata/data", logger)
	pipeline := engine.NewPipeline(logger, loader, filter.NewEngine(filter.DefaultPolicy()), nil)
	return services.NewDashboardService(logger, pipeline, loader, session.NewStore(time.Hour), cache.NewMemoryProvider(0), services.Options{ViewTTL: time.Minute})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewRESTHandler(newTestDashboard(t), utils.Discard())))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRenderViewEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var page models.Page
	code := getJSON(t, srv.URL+"/api/v1/views/demographics?year_min=2010&year_max=2012", &page)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Demographics", page.View)
	assert.Equal(t, 2010, page.Selection.YearMin)
	require.Len(t, page.Panels, 1)
	assert.Equal(t, models.PanelOK, page.Panels[0].Status)

	var outside models.Page
	code = getJSON(t, srv.URL+"/api/v1/views/demographics?year_min=1900&year_max=1950", &outside)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, outside.Panels, 1)
	assert.Equal(t, models.PanelEmpty, outside.Panels[0].Status)

	var errBody ErrorResponse
	code = getJSON(t, srv.URL+"/api/v1/views/demographics?year_min=soon", &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(utils.KindInvalidArgument), errBody.Kind)

	code = getJSON(t, srv.URL+"/api/v1/views/billing", &errBody)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	var sess session.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, sess.ID)

	body, _ := json.Marshal(models.NavigateRequest{View: "Genome"})
	resp, err = http.Post(srv.URL+"/api/v1/sessions/"+sess.ID+"/navigate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.ViewGenome, sess.Page)

	q := url.Values{"session": {sess.ID}, "tumor_site": {"Breast, NOS"}}
	var page models.Page
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/views/tumor?"+q.Encode(), &page))
	assert.Equal(t, sess.ID, page.SessionID)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/sessions/"+sess.ID, &sess))
	assert.Equal(t, session.ViewTumor, sess.Page)
	assert.Equal(t, []string{"Breast, NOS"}, sess.Selection.TumorSites)

	var errBody ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/sessions/unknown", &errBody))
}

func TestRenderPanelPNGEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/views/survival/panels/survival.png?survival_by=" + url.QueryEscape("Race/Ethnicity"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var errBody ErrorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/views/tumor/panels/laterality.png", &errBody))
	assert.Equal(t, http.StatusUnprocessableEntity, getJSON(t, srv.URL+"/api/v1/views/survival/panels/survival.png?stage=IV", &errBody))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/views/survival/panels/heatmap.png", &errBody))
}

func TestOptionsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var values []string
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/options/genome_cluster/Gene", &values))
	assert.Equal(t, []string{"BRCA1", "TP53"}, values)

	var groupings []string
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/survival/groupings", &groupings))
	assert.Contains(t, groupings, "Race/Ethnicity")

	var errBody ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/options/genome_cluster/Shoe", &errBody))
}

func TestParseRenderQuery(t *testing.T) {
	q := url.Values{
		"year_min":   {"2000"},
		"year_max":   {"2010"},
		"age_group":  {"45-54 yrs,55-64 yrs"},
		"tumor_site": {"Breast, NOS", "Nipple"},
		"path_n":     {"N0", "N1"},
		"expr_min":   {"0.5"},
		"diagnosis":  {"Carcinoma, NOS"},
	}
	req, err := ParseRenderQuery(q)
	require.NoError(t, err)
	assert.Equal(t, 2000, req.Selection.YearMin)
	assert.Equal(t, 2010, req.Selection.YearMax)
	assert.Equal(t, []string{"45-54 yrs", "55-64 yrs"}, req.Selection.AgeGroups)
	assert.Equal(t, []string{"Breast, NOS", "Nipple"}, req.Selection.TumorSites)
	assert.Equal(t, []string{"N0", "N1"}, req.Selection.PathologicN)
	assert.Equal(t, []string{"Carcinoma, NOS"}, req.Selection.Diagnoses)
	require.NotNil(t, req.Selection.ExpressionMin)
	assert.Equal(t, 0.5, *req.Selection.ExpressionMin)
	assert.Nil(t, req.Selection.ExpressionMax)

	req, err = ParseRenderQuery(url.Values{"year_min": {"2012"}, "year_max": {"2010"}})
	require.NoError(t, err)
	assert.Equal(t, 2010, req.Selection.YearMin)
	assert.Equal(t, 2012, req.Selection.YearMax)

	req, err = ParseRenderQuery(url.Values{"year_min": {"2030"}})
	require.NoError(t, err)
	assert.Equal(t, 2030, req.Selection.YearMin)
	assert.Zero(t, req.Selection.YearMax)

	_, err = ParseRenderQuery(url.Values{"expr_max": {"lots"}})
	assert.Equal(t, utils.KindInvalidArgument, utils.KindOf(err))
}
