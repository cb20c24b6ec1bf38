// Package server exposes the cost engine over HTTP and watches the billing
// export directory for changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/source"
	"github.com/theirongolddev/costcast/internal/store"
)

// Defaults fill query parameters a request leaves out.
type Defaults struct {
	Days      int
	DaysAhead int
	Method    model.Method
	Threshold float64
}

// Config controls the server runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	CacheSize    int
	CacheTTL     time.Duration
	RateLimitRPS float64
	RateBurst    int
	Defaults     Defaults
	Engine       engine.Options
	Load         pipeline.LoadOptions
	Currency     string

	// Archive, when set, records every report served.
	Archive *store.Archive
	// Loader replaces pipeline.Load; tests use it to serve fixed data.
	Loader func() (*pipeline.LoadResult, error)
	Now    func() time.Time
}

// Snapshot is a compact view of the loaded billing data.
type Snapshot struct {
	At          time.Time `json:"at"`
	Providers   []string  `json:"providers"`
	Days        int       `json:"days"`
	TotalCost   float64   `json:"total_cost"`
	AvgDaily    float64   `json:"avg_daily_cost"`
	LatestDate  string    `json:"latest_date,omitempty"`
	LatestCost  float64   `json:"latest_cost"`
	Anomalies   int       `json:"anomalies"`
	Fingerprint uint64    `json:"fingerprint,string"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Days      int     `json:"days"`
	TotalCost float64 `json:"total_cost"`
	Anomalies int     `json:"anomalies"`
}

// Event is emitted when the loaded data changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	DataDir         string    `json:"data_dir,omitempty"`
	Days            int       `json:"days"`
	Currency        string    `json:"currency,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
	CacheEntries    int       `json:"cache_entries"`
}

// Service provides the HTTP API and export polling.
type Service struct {
	cfg     Config
	log     zerolog.Logger
	cache   *responseCache
	limiter *rate.Limiter
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	data        *pipeline.LoadResult
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service with defaults applied to cfg.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8470"
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 256
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = int(cfg.RateLimitRPS * 2)
	}
	if cfg.Defaults.Days < 1 {
		cfg.Defaults.Days = 30
	}
	if cfg.Defaults.DaysAhead < 1 {
		cfg.Defaults.DaysAhead = engine.DefaultDaysAhead
	}
	if cfg.Defaults.Method == "" {
		cfg.Defaults.Method = model.MethodEnsemble
	}
	if cfg.Defaults.Threshold <= 0 {
		cfg.Defaults.Threshold = engine.DefaultAnomalyThreshold
	}
	if cfg.Loader == nil {
		opts := cfg.Load
		cfg.Loader = func() (*pipeline.LoadResult, error) { return pipeline.Load(opts, nil) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cache, err := newResponseCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst),
		metrics:   newMetrics(),
		startedAt: cfg.Now(),
		subs:      make(map[int]chan Event),
	}, nil
}

// Run serves HTTP and polls the exports until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("costcast server listening")

	// Seed initial snapshot so status is useful immediately.
	s.Poll()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.Poll()
		case err := <-errCh:
			return fmt.Errorf("costcast http server: %w", err)
		}
	}
}

// Poll reloads the exports and publishes an event when the data changed.
func (s *Service) Poll() {
	res, err := s.cfg.Loader()
	now := s.cfg.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.metrics.polls.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("poll failed")
		return
	}
	s.metrics.polls.WithLabelValues("ok").Inc()

	snap := s.snapshotFrom(res, now)
	s.metrics.seriesDays.Set(float64(snap.Days))
	s.metrics.seriesTotal.Set(snap.TotalCost)
	s.metrics.anomalyCount.Set(float64(snap.Anomalies))

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.data = res
	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	switch {
	case !prevExists:
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	case prev.Fingerprint != snap.Fingerprint:
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "series_changed",
			Timestamp: now,
			Snapshot:  snap,
			Delta:     diffSnapshots(prev, snap),
		}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		if ev.Type == "series_changed" {
			s.metrics.seriesChanges.Inc()
			s.cache.Purge()
			s.log.Info().
				Int("days_delta", ev.Delta.Days).
				Float64("cost_delta", ev.Delta.TotalCost).
				Msg("billing data changed")
		}
		s.publishEvent(ev)
	}
}

// snapshotFrom summarizes the combined series over the default window.
// The fingerprint covers the full combined series.
func (s *Service) snapshotFrom(res *pipeline.LoadResult, at time.Time) Snapshot {
	all, _ := res.Series(pipeline.AllProviders)
	window := source.FilterRange(all, source.LastNDays(at, s.cfg.Defaults.Days))

	snap := Snapshot{
		At:          at,
		Providers:   res.ProviderNames(),
		Days:        len(window),
		TotalCost:   window.Total(),
		Fingerprint: pipeline.Fingerprint(all),
	}
	if snap.Days > 0 {
		snap.AvgDaily = snap.TotalCost / float64(snap.Days)
		dates := window.Dates()
		snap.LatestDate = dates[len(dates)-1]
		snap.LatestCost = window[snap.LatestDate]
	}
	if anomalies, err := engine.New(s.cfg.Engine).DetectAnomalies(window, s.cfg.Defaults.Threshold); err == nil {
		snap.Anomalies = len(anomalies)
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Days:      curr.Days - prev.Days,
		TotalCost: curr.TotalCost - prev.TotalCost,
		Anomalies: curr.Anomalies - prev.Anomalies,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		DataDir:         s.cfg.Load.DataDir,
		Days:            s.cfg.Defaults.Days,
		Currency:        s.cfg.Currency,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
		CacheEntries:    s.cache.Len(),
	}
}

func (s *Service) loaded() *pipeline.LoadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
