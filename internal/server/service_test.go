package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/store"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

// tenDays is 2024-05-01..10 with a spike on the 5th.
func tenDays() model.DailyCostSeries {
	s := model.DailyCostSeries{}
	for i := 0; i < 10; i++ {
		s[time.Date(2024, 5, 1+i, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)] = 10
	}
	s["2024-05-05"] = 100
	return s
}

func newTestService(t *testing.T, cfg Config, providers map[string]model.DailyCostSeries) *Service {
	t.Helper()
	if cfg.Loader == nil {
		cfg.Loader = func() (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Providers: providers}, nil
		}
	}
	cfg.Now = func() time.Time { return testNow }
	cfg.Engine = engine.Options{Seed: 42, Trees: 10}
	svc, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Days: 10, TotalCost: 100.5, Anomalies: 1}
	curr := Snapshot{Days: 12, TotalCost: 131.1, Anomalies: 3}

	delta := diffSnapshots(prev, curr)
	if delta.Days != 2 {
		t.Fatalf("Days delta = %d, want 2", delta.Days)
	}
	if delta.Anomalies != 2 {
		t.Fatalf("Anomalies delta = %d, want 2", delta.Anomalies)
	}
	if math.Abs(delta.TotalCost-30.6) > 1e-9 {
		t.Fatalf("Cost delta = %.2f, want 30.60", delta.TotalCost)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, Config{EventsBuffer: 2}, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ids = [%d %d], want [2 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPoll_EmitsOnlyWhenDataChanges(t *testing.T) {
	current := tenDays()
	s := newTestService(t, Config{
		Loader: func() (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Providers: map[string]model.DailyCostSeries{"aliyun": current.Clone()}}, nil
		},
	}, nil)

	s.Poll()
	s.Poll()
	current["2024-05-11"] = 12
	s.Poll()

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()

	require.Len(t, events, 2)
	assert.Equal(t, "snapshot", events[0].Type)
	assert.Equal(t, "series_changed", events[1].Type)
	assert.Equal(t, 1, events[1].Delta.Days)
	assert.InDelta(t, 12, events[1].Delta.TotalCost, 1e-9)
	assert.Equal(t, "2024-05-11", events[1].Snapshot.LatestDate)
	assert.Equal(t, []string{"aliyun"}, events[1].Snapshot.Providers)

	st := s.snapshotStatus()
	assert.Equal(t, int64(3), st.PollCount)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 1, st.Summary.Anomalies)
}

func TestPoll_RecordsLoaderError(t *testing.T) {
	s := newTestService(t, Config{
		Loader: func() (*pipeline.LoadResult, error) { return nil, errors.New("disk gone") },
	}, nil)
	s.Poll()

	st := s.snapshotStatus()
	assert.Equal(t, "disk gone", st.LastError)
	assert.Equal(t, int64(1), st.PollCount)

	rec, body := get(t, s.Handler(), "/v1/analysis")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestHandler_Health(t *testing.T) {
	s := newTestService(t, Config{}, nil)
	rec, _ := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestHandler_Analysis(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()

	rec, body := get(t, s.Handler(), "/v1/analysis?start_date=2024-05-01&end_date=2024-05-10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	records := body["daily_analysis"].([]any)
	require.Len(t, records, 10)
	spike := records[4].(map[string]any)
	assert.Equal(t, "2024-05-05", spike["date"])
	assert.Equal(t, "high", spike["level"])

	stats := body["statistics"].(map[string]any)
	assert.InDelta(t, 19, stats["mean"], 1e-9)
	assert.InDelta(t, 10, stats["total_days"], 1e-9)
}

func TestHandler_DefaultRangeIsLastNDays(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()

	// testNow is 2024-05-20, so the last five days hold no costs.
	rec, body := get(t, s.Handler(), "/v1/costs?days=5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = get(t, s.Handler(), "/v1/costs")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 190, body["total_cost"], 1e-9)
	assert.InDelta(t, 10, body["days_count"], 1e-9)
	assert.Equal(t, []any{}, body["products"])
}

func TestHandler_Forecast(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()

	rec, body := get(t, h, "/v1/forecast?provider=ALIYUN&prediction_days=5&method=moving_average")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preds := body["predictions"].([]any)
	require.Len(t, preds, 5)
	assert.Equal(t, "2024-05-11", preds[0].(map[string]any)["date"])
	stats := body["statistics"].(map[string]any)
	assert.Equal(t, "moving_average", stats["method"])
	assert.InDelta(t, 5, stats["prediction_days"], 1e-9)

	rec, body = get(t, h, "/v1/forecast?start_date=2024-05-01&end_date=2024-05-03")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "insufficient data")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.engineErrors.WithLabelValues("insufficient data")))
}

func TestHandler_InvalidParams(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()

	for _, target := range []string{
		"/v1/forecast?days_ahead=0",
		"/v1/forecast?days_ahead=abc",
		"/v1/analysis?start_date=05/01/2024",
		"/v1/analysis?start_date=2024-05-10&end_date=2024-05-01",
		"/v1/anomalies?threshold=-1",
		"/v1/analysis?days=0",
		"/v1/analysis?provider=aws",
	} {
		rec, body := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, false, body["success"], target)
		assert.NotEmpty(t, body["message"], target)
	}
}

func TestHandler_Anomalies(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()

	rec, body := get(t, s.Handler(), "/v1/anomalies?threshold=2.5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 2.5, body["threshold"], 1e-9)
	anomalies := body["anomalies"].([]any)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "2024-05-05", anomalies[0].(map[string]any)["date"])
}

func TestHandler_Budget(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()

	rec, body := get(t, h, "/v1/budget")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "daily_budget is required", body["message"])

	rec, body = get(t, h, "/v1/budget?daily_budget=20")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := body["summary"].(map[string]any)
	assert.InDelta(t, 1, summary["over_budget_days"], 1e-9)
	assert.InDelta(t, 10, summary["total_days"], 1e-9)
}

func TestHandler_CachesResponses(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()

	first, _ := get(t, h, "/v1/analysis")
	second, _ := get(t, h, "/v1/analysis")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.cacheHits))
}

func TestHandler_RateLimit(t *testing.T) {
	s := newTestService(t, Config{RateLimitRPS: 0.001, RateBurst: 1}, nil)
	h := s.Handler()

	rec, _ := get(t, h, "/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := get(t, h, "/v1/status")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])

	// Health checks bypass the limiter.
	rec, _ = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ReportIsArchived(t *testing.T) {
	archive, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })

	s := newTestService(t, Config{Archive: archive, Currency: "CNY"},
		map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()

	rec, body := get(t, h, "/v1/report?days_ahead=3&daily_budget=15")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "CNY", body["currency"])
	assert.NotNil(t, body["budget"])

	rec, body = get(t, h, "/v1/runs?kind=report")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runs := body["runs"].([]any)
	require.Len(t, runs, 1)
	id := runs[0].(map[string]any)["id"].(string)

	rec, body = get(t, h, "/v1/runs/"+id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "report", body["kind"])
	assert.NotNil(t, body["payload"])

	rec, _ = get(t, h, "/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RunsWithoutArchive(t *testing.T) {
	s := newTestService(t, Config{}, nil)
	rec, _ := get(t, s.Handler(), "/v1/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Metrics(t *testing.T) {
	s := newTestService(t, Config{}, map[string]model.DailyCostSeries{"aliyun": tenDays()})
	s.Poll()
	h := s.Handler()
	get(t, h, "/v1/status")

	rec, _ := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `costcast_http_requests_total{code="200",route="/v1/status"} 1`)
	assert.Contains(t, rec.Body.String(), "costcast_series_days 10")
}

func TestResponseCache_Expires(t *testing.T) {
	c, err := newResponseCache(2, 50*time.Millisecond)
	require.NoError(t, err)

	c.Set("a", []byte("1"))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("a")
		return !ok && c.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResponseCache_EvictsOldest(t *testing.T) {
	c, err := newResponseCache(2, 0)
	require.NoError(t, err)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	got, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), got)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())

	_, err = newResponseCache(0, time.Minute)
	assert.Error(t, err)
}
