package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mchmarny/nutctl/pkg/data"
	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/mchmarny/nutctl/pkg/nutrition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*httptest.Server, *fakeFDC) {
	t.Helper()
	fake := newFakeFDC(t)

	store, err := data.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	deps := &serverDeps{
		store: store,
		newClient: func() (*fdc.Client, error) {
			return fdc.NewClient(testAPIKey, fdc.WithBaseURL(fake.URL))
		},
		goal:     string(nutrition.MuscleGain),
		pageSize: 50,
	}

	srv := httptest.NewServer(makeRouter(deps))
	t.Cleanup(srv.Close)
	return srv, fake
}

func doRequest(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func importTestFoods(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, b := doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"query": "Yogurt"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
}

func TestHomeView(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, b := doRequest(t, http.MethodGet, srv.URL+"/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "<title>nutctl</title>")
	assert.Contains(t, string(b), "muscle_gain")
	assert.Contains(t, string(b), "low active")

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/static/assets/css/app.css", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/favicon.ico", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, b := doRequest(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"status":"ok"`)

	doRequest(t, http.MethodGet, srv.URL+"/data/state", nil)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "nutctl_server_http_requests_total")
}

func TestRequestID(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/healthz", nil)
	_, err := uuid.Parse(resp.Header.Get(requestIDHeader))
	require.NoError(t, err)

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(requestIDHeader))
}

func TestSearchAPI(t *testing.T) {
	srv, fake := setupTestServer(t)

	resp, b := doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"query": "Yogurt", "limit": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	var res SearchResponse
	require.NoError(t, json.Unmarshal(b, &res))
	assert.Equal(t, "yogurt", res.Import.Query)
	assert.Equal(t, 3, res.Import.Saved)
	require.Len(t, res.Foods, 3)
	assert.Equal(t, int64(1), res.Foods[0].FDCID)
	assert.Equal(t, int32(1), fake.searches.Load())
}

func TestSearchAPI_Errors(t *testing.T) {
	srv, fake := setupTestServer(t)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"query": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"q": "yogurt"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fake.status = http.StatusTooManyRequests
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"query": "yogurt"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	fake.status = http.StatusInternalServerError
	resp, b := doRequest(t, http.MethodPost, srv.URL+"/data/search", map[string]any{"query": "yogurt"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, string(b), testAPIKey)
}

func TestFoodAPIs(t *testing.T) {
	srv, _ := setupTestServer(t)
	importTestFoods(t, srv)

	resp, b := doRequest(t, http.MethodGet, srv.URL+"/data/foods?q=yogurt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var foods []*nutrition.Profile
	require.NoError(t, json.Unmarshal(b, &foods))
	assert.Len(t, foods, 2)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/food/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view FoodView
	require.NoError(t, json.Unmarshal(b, &view))
	assert.Equal(t, "PROTEIN BAR", view.Food)
	assert.InDelta(t, 20, view.Protein, 0.0001)
	require.NotNil(t, view.Radar)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/radar/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var radar nutrition.RadarChart
	require.NoError(t, json.Unmarshal(b, &radar))
	assert.Equal(t, "PROTEIN BAR", radar.Title)
	require.Len(t, radar.Values, 7)
	assert.InDelta(t, 0.1, radar.Values[0], 0.0001)
	assert.InDelta(t, 0.4, radar.Values[1], 0.0001)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/data/food/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/data/radar/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/searches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"query":"yogurt"`)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state map[string]int64
	require.NoError(t, json.Unmarshal(b, &state))
	assert.Equal(t, int64(3), state["foods"])
	assert.Equal(t, int64(1), state["searches"])
}

func TestScoreAPI(t *testing.T) {
	srv, fake := setupTestServer(t)
	importTestFoods(t, srv)

	req := map[string]any{
		"query": "yogurt",
		"person": map[string]any{
			"sex":       "Male",
			"age":       30,
			"height_cm": 180,
			"weight_kg": 80,
			"activity":  "active",
		},
		"top": 2,
	}
	resp, b := doRequest(t, http.MethodPost, srv.URL+"/data/score", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	assert.Equal(t, int32(1), fake.searches.Load())

	var res ScoreResult
	require.NoError(t, json.Unmarshal(b, &res))
	assert.Equal(t, nutrition.MuscleGain, res.Goal)
	assert.InDelta(t, 3126.32, res.TEE, 0.001)
	require.Len(t, res.Foods, 2)
	assert.Equal(t, "PROTEIN BAR", res.Foods[0].Food)
	assert.Contains(t, string(b), `"total_score"`)

	req["goal"] = "bulk"
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/score", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req["goal"] = "fat_loss"
	req["person"].(map[string]any)["activity"] = "sofa"
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/score", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEnergyAPI(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, b := doRequest(t, http.MethodPost, srv.URL+"/data/energy", map[string]any{
		"sex":       "female",
		"age":       25,
		"height_cm": 165,
		"weight_kg": 60,
		"activity":  "inactive",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	var res EnergyResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.NotNil(t, res.TEE)
	require.NotNil(t, res.BMR)
	assert.InDelta(t, 2056.05, *res.TEE, 0.001)
	assert.InDelta(t, 1345.25, *res.BMR, 0.001)
	require.NotNil(t, res.Targets)
	assert.InDelta(t, 2056.05*0.4/4/3, res.Targets.Protein, 0.001)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/energy", map[string]any{
		"sex": "female", "age": -1, "height_cm": 165, "weight_kg": 60,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/data/energy", map[string]any{"sex": "robot"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, b = doRequest(t, http.MethodPost, srv.URL+"/data/energy", map[string]any{
		"sex": "male", "age": 30, "height_cm": 1e308, "weight_kg": 80, "activity": "active",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "out of range")
}

func TestExerciseAPI(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, b := doRequest(t, http.MethodGet, srv.URL+"/data/exercise?calories=300&bmi=22&age=30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	var res ExerciseResult
	require.NoError(t, json.Unmarshal(b, &res))
	require.Len(t, res.Exercises, 4)
	assert.Equal(t, 75, res.Exercises[3].TimeMin)

	resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/exercise?calories=300&height=180&weight=100&age=50", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	require.NoError(t, json.Unmarshal(b, &res))
	assert.InDelta(t, 30.86, res.BMI, 0.01)
	assert.InDelta(t, 7.69, res.Exercises[0].SpeedKmh, 1e-9)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/data/exercise", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/data/exercise?calories=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, q := range []string{"calories=NaN", "calories=Inf", "calories=300&age=NaN", "calories=300&bmi=-Inf"} {
		resp, b = doRequest(t, http.MethodGet, srv.URL+"/data/exercise?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Contains(t, string(b), "finite", q)
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"tee": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to encode response")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(nutrition.ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, statusFor(fdc.ErrAPIKeyRequired))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&fdc.StatusError{Code: http.StatusTooManyRequests}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&fdc.StatusError{Code: http.StatusForbidden}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}

func TestMetricsMiddleware_Status(t *testing.T) {
	h := metricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTeapot, "short and stout")
	}, "teapot")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "short and stout"))
}
