package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/source"
	"github.com/theirongolddev/costcast/internal/store"
)

const (
	maxDaysAhead   = 366
	requestTimeout = 60 * time.Second
)

var errNotLoaded = errors.New("billing data has not been loaded yet")

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Get("/v1/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/v1/status", s.handleStatus)
		r.Get("/v1/events", s.handleEvents)
		r.Get("/v1/providers", s.handleProviders)
		r.Get("/v1/costs", s.handleCosts)
		r.Get("/v1/analysis", s.handleAnalysis)
		r.Get("/v1/forecast", s.handleForecast)
		r.Get("/v1/anomalies", s.handleAnomalies)
		r.Get("/v1/budget", s.handleBudget)
		r.Get("/v1/report", s.handleReport)
		r.Get("/v1/runs", s.handleRuns)
		r.Get("/v1/runs/{id}", s.handleRun)
	})
	return r
}

// query holds the parsed parameters shared by the analysis endpoints.
type query struct {
	Provider  string
	Range     model.DateRange
	DaysAhead int
	Method    model.Method
	Threshold float64
	Budget    *float64
}

func (q query) cacheKey(op string, fingerprint uint64) string {
	budget := "-"
	if q.Budget != nil {
		budget = strconv.FormatFloat(*q.Budget, 'g', -1, 64)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%s|%g|%s|%016x",
		op, q.Provider, q.Range, q.DaysAhead, q.Method, q.Threshold, budget, fingerprint)
}

func (s *Service) parseQuery(r *http.Request) (query, error) {
	v := r.URL.Query()
	q := query{
		Provider:  strings.ToLower(strings.TrimSpace(v.Get("provider"))),
		DaysAhead: s.cfg.Defaults.DaysAhead,
		Method:    s.cfg.Defaults.Method,
		Threshold: s.cfg.Defaults.Threshold,
	}
	if q.Provider == "" {
		q.Provider = pipeline.AllProviders
	}

	start, end := v.Get("start_date"), v.Get("end_date")
	if start == "" && end == "" {
		days := s.cfg.Defaults.Days
		if raw := v.Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return q, fmt.Errorf("invalid days %q", raw)
			}
			days = n
		}
		q.Range = source.LastNDays(s.cfg.Now(), days)
	} else {
		for _, p := range []struct {
			raw string
			dst *time.Time
			key string
		}{{start, &q.Range.Start, "start_date"}, {end, &q.Range.End, "end_date"}} {
			if p.raw == "" {
				continue
			}
			t, err := time.Parse(model.DateLayout, p.raw)
			if err != nil {
				return q, fmt.Errorf("invalid %s %q, want YYYY-MM-DD", p.key, p.raw)
			}
			*p.dst = t
		}
		if !q.Range.Start.IsZero() && !q.Range.End.IsZero() && q.Range.End.Before(q.Range.Start) {
			return q, errors.New("end_date is before start_date")
		}
	}

	raw := v.Get("days_ahead")
	if raw == "" {
		raw = v.Get("prediction_days")
	}
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDaysAhead {
			return q, fmt.Errorf("invalid days_ahead %q, want 1..%d", raw, maxDaysAhead)
		}
		q.DaysAhead = n
	}

	if m := strings.ToLower(strings.TrimSpace(v.Get("method"))); m != "" {
		q.Method = model.Method(m)
	}

	if raw := v.Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return q, fmt.Errorf("invalid threshold %q", raw)
		}
		q.Threshold = f
	}

	if raw := v.Get("daily_budget"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, fmt.Errorf("invalid daily_budget %q", raw)
		}
		q.Budget = &f
	}
	return q, nil
}

// seriesFor selects the provider and range of q from the loaded data.
func (s *Service) seriesFor(q query) (model.DailyCostSeries, error) {
	data := s.loaded()
	if data == nil {
		return nil, errNotLoaded
	}
	all, err := data.Series(q.Provider)
	if err != nil {
		return nil, err
	}
	series := source.FilterRange(all, q.Range)
	if len(series) == 0 {
		return nil, pipeline.ErrNoBillingData
	}
	return series, nil
}

type computeFunc func(ctx context.Context, q query, series model.DailyCostSeries) (any, error)

// serve parses the request, consults the cache and otherwise runs compute
// against a fresh engine.
func (s *Service) serve(w http.ResponseWriter, r *http.Request, op string, compute computeFunc) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := s.seriesFor(q)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errNotLoaded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	key := q.cacheKey(op, pipeline.Fingerprint(series))
	if body, ok := s.cache.Get(key); ok {
		s.metrics.cacheHits.Inc()
		writeBody(w, http.StatusOK, body)
		return
	}
	s.metrics.cacheMisses.Inc()

	v, err := compute(r.Context(), q, series)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		var ee *engine.Error
		if errors.As(err, &ee) {
			s.metrics.engineErrors.WithLabelValues(ee.Kind.String()).Inc()
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cache.Set(key, body)
	writeBody(w, http.StatusOK, body)
}

func (s *Service) engine() *engine.Engine {
	return engine.New(s.cfg.Engine)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleProviders(w http.ResponseWriter, _ *http.Request) {
	data := s.loaded()
	if data == nil {
		writeError(w, http.StatusServiceUnavailable, errNotLoaded.Error())
		return
	}
	type provider struct {
		Name      string  `json:"name"`
		Days      int     `json:"days"`
		TotalCost float64 `json:"total_cost"`
	}
	out := make([]provider, 0, len(data.Providers))
	for _, name := range data.ProviderNames() {
		series := data.Providers[name]
		out = append(out, provider{Name: name, Days: len(series), TotalCost: pipeline.Round2(series.Total())})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "providers": out})
}

// costsResponse is the raw daily series plus a per-product breakdown.
type costsResponse struct {
	pipeline.Status
	Provider   string                `json:"provider"`
	DateRange  pipeline.DateRange    `json:"date_range"`
	Currency   string                `json:"currency,omitempty"`
	DailyCosts model.DailyCostSeries `json:"daily_costs"`
	TotalCost  float64               `json:"total_cost"`
	DaysCount  int                   `json:"days_count"`
	Products   []source.ProductCost  `json:"products"`
}

func (s *Service) handleCosts(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "costs", func(_ context.Context, q query, series model.DailyCostSeries) (any, error) {
		daily := make(model.DailyCostSeries, len(series))
		for d, c := range series {
			daily[d] = pipeline.Round2(c)
		}

		var items []source.Item
		if data := s.loaded(); data != nil {
			for _, it := range data.Items {
				if q.Provider != pipeline.AllProviders && it.Provider != q.Provider {
					continue
				}
				if q.Range.Contains(it.Date) {
					items = append(items, it)
				}
			}
		}
		agg := source.Aggregator{Rates: s.cfg.Load.Rates, Base: s.cfg.Load.Base}
		products := agg.ProductSummary(items)
		for i := range products {
			products[i].Cost = pipeline.Round2(products[i].Cost)
		}

		return costsResponse{
			Status:     pipeline.Status{Success: true},
			Provider:   q.Provider,
			DateRange:  rangeOf(q.Range),
			Currency:   s.cfg.Currency,
			DailyCosts: daily,
			TotalCost:  pipeline.Round2(series.Total()),
			DaysCount:  len(series),
			Products:   products,
		}, nil
	})
}

func (s *Service) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "analysis", func(_ context.Context, _ query, series model.DailyCostSeries) (any, error) {
		a, err := s.engine().Analyze(series)
		if err != nil {
			return nil, err
		}
		return pipeline.AnalysisSection{Status: pipeline.Status{Success: true}, Analysis: pipeline.RoundAnalysis(a)}, nil
	})
}

func (s *Service) handleForecast(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "forecast", func(ctx context.Context, q query, series model.DailyCostSeries) (any, error) {
		f, err := s.engine().Forecast(ctx, series, q.DaysAhead, q.Method)
		if err != nil {
			return nil, err
		}
		return pipeline.ForecastSection{Status: pipeline.Status{Success: true}, Forecast: pipeline.RoundForecast(f)}, nil
	})
}

func (s *Service) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "anomalies", func(_ context.Context, q query, series model.DailyCostSeries) (any, error) {
		anomalies, err := s.engine().DetectAnomalies(series, q.Threshold)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"success":   true,
			"anomalies": pipeline.RoundAnomalies(anomalies),
			"threshold": q.Threshold,
		}, nil
	})
}

func (s *Service) handleBudget(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("daily_budget") == "" {
		writeError(w, http.StatusBadRequest, "daily_budget is required")
		return
	}
	s.serve(w, r, "budget", func(_ context.Context, q query, series model.DailyCostSeries) (any, error) {
		b, err := s.engine().CompareBaseline(series, *q.Budget)
		if err != nil {
			return nil, err
		}
		return pipeline.BudgetSection{Status: pipeline.Status{Success: true}, BudgetComparison: pipeline.RoundBudget(b)}, nil
	})
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "report", func(ctx context.Context, q query, series model.DailyCostSeries) (any, error) {
		rep, err := pipeline.BuildReport(ctx, s.engine(), series, pipeline.Request{
			Provider:    q.Provider,
			Range:       q.Range,
			DaysAhead:   q.DaysAhead,
			Method:      q.Method,
			Threshold:   q.Threshold,
			DailyBudget: q.Budget,
		})
		if err != nil {
			return nil, err
		}
		rep.Currency = s.cfg.Currency
		out := rep.Rounded()
		s.archive(q, series, out)
		return out, nil
	})
}

func (s *Service) archive(q query, series model.DailyCostSeries, rep *pipeline.Report) {
	if s.cfg.Archive == nil {
		return
	}
	run, err := s.cfg.Archive.Save(store.Run{
		Kind:        "report",
		Provider:    q.Provider,
		RangeStart:  rep.DateRange.Start,
		RangeEnd:    rep.DateRange.End,
		Method:      string(q.Method),
		Fingerprint: pipeline.Fingerprint(series),
		Days:        len(series),
		TotalCost:   rep.BillingSummary.TotalCost,
		Headline:    fmt.Sprintf("trend %s, %d anomalies", rep.Predictions.Stats.Trend, len(rep.Anomalies)),
	}, rep)
	if err != nil {
		s.log.Warn().Err(err).Msg("archiving report")
		return
	}
	s.log.Debug().Str("run_id", run.ID).Msg("report archived")
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Archive == nil {
		writeError(w, http.StatusNotFound, "run archive is disabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	runs, err := s.cfg.Archive.List(r.URL.Query().Get("kind"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": runs})
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Archive == nil {
		writeError(w, http.StatusNotFound, "run archive is disabled")
		return
	}
	run, err := s.cfg.Archive.Get(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: s.cfg.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func rangeOf(r model.DateRange) pipeline.DateRange {
	var out pipeline.DateRange
	if !r.Start.IsZero() {
		out.Start = r.Start.Format(model.DateLayout)
	}
	if !r.End.IsZero() {
		out.End = r.End.Format(model.DateLayout)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, pipeline.Status{Success: false, Message: msg})
}
