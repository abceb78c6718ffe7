package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/hourlyweather/internal/metrics"
	"github.com/lox/hourlyweather/internal/models"
	"github.com/lox/hourlyweather/internal/store"
)

const (
	DefaultRefreshInterval = 30 * time.Minute
	DefaultCacheTTL        = time.Hour
	refreshConcurrency     = 4
	payloadRetentionDays   = 30
)

// Scheduler keeps cached series fresh for every saved location and serves
// series to the presentation layer, fetching on a cache miss.
type Scheduler struct {
	store       *store.Store
	forecast    *ForecastClient
	interval    time.Duration
	ttl         time.Duration
	concurrency int
	now         func() time.Time
}

func NewScheduler(st *store.Store, fc *ForecastClient, interval, ttl time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Scheduler{
		store:       st,
		forecast:    fc,
		interval:    interval,
		ttl:         ttl,
		concurrency: refreshConcurrency,
		now:         time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.refreshAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			s.refreshAndLog(ctx)
		}
	}
}

func (s *Scheduler) refreshAndLog(ctx context.Context) {
	if err := s.RefreshAll(ctx); err != nil {
		log.Printf("scheduler: refresh: %v", err)
	}
	if n, err := s.store.PruneSeries(s.now()); err != nil {
		log.Printf("scheduler: prune series: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: pruned %d expired series", n)
	}
	if n, err := s.store.CleanupOldRawPayloads(payloadRetentionDays); err != nil {
		log.Printf("scheduler: cleanup raw payloads: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: removed %d raw payloads older than %d days", n, payloadRetentionDays)
	}
}

// RefreshAll fetches every saved location concurrently. A failing location
// is logged and does not stop the others.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	locations, err := s.store.ListLocations()
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}
	if len(locations) == 0 {
		return nil
	}

	log.Printf("scheduler: refreshing %d locations", len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, loc := range locations {
		place := loc.Place
		g.Go(func() error {
			if _, err := s.Refresh(gctx, place); err != nil {
				log.Printf("scheduler: refresh %s: %v", place.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Series returns the cached series for place, fetching it when the cache
// has nothing fresh.
func (s *Scheduler) Series(ctx context.Context, place models.Place) (*models.HourlySeries, error) {
	key := store.LocationKey(place.Latitude, place.Longitude)
	series, err := s.store.GetSeries(key, s.now())
	if err != nil {
		log.Printf("scheduler: read cache %s: %v", key, err)
	}
	if series != nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return series, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	return s.Refresh(ctx, place)
}

// Refresh fetches place from the provider, audits the call, archives the
// raw payload and caches the decoded series.
func (s *Scheduler) Refresh(ctx context.Context, place models.Place) (*models.HourlySeries, error) {
	key := store.LocationKey(place.Latitude, place.Longitude)

	run, err := s.store.StartIngestRun(SourceOpenMeteo, EndpointForecast, key)
	if err != nil {
		log.Printf("scheduler: start ingest run: %v", err)
	}
	series, rawBody, fetchResult, err := s.forecast.FetchHourly(ctx, place.Latitude, place.Longitude, place.Timezone)

	if run != nil {
		run.Success = err == nil
		if fetchResult != nil {
			run.HTTPStatus = sql.NullInt64{Int64: int64(fetchResult.HTTPStatus), Valid: fetchResult.HTTPStatus > 0}
			run.ResponseSizeBytes = sql.NullInt64{Int64: int64(fetchResult.ResponseSize), Valid: fetchResult.ResponseSize > 0}
			run.HoursParsed = sql.NullInt64{Int64: int64(fetchResult.Hours), Valid: err == nil}
		}
		run.Fail(err)
	}

	if len(rawBody) > 0 && run != nil {
		if _, err := s.store.StoreRawPayload(&run.ID, SourceOpenMeteo, EndpointForecast, key, []byte(rawBody)); err != nil {
			log.Printf("scheduler: store raw payload: %v", err)
		}
	}

	if err == nil {
		flags := ValidateSeries(series, s.forecast.Days()*24)
		for _, f := range flags {
			metrics.SeriesQualityFlags.WithLabelValues(f).Inc()
		}
		if len(flags) > 0 {
			log.Printf("scheduler: %s quality flags: %v", key, flags)
		}
		if fetchResult != nil {
			fetchResult.QualityFlags = flags
		}
		if run != nil {
			run.QualityFlags = flags
		}

		if err := s.store.PutSeries(key, series, s.now(), s.ttl); err != nil {
			log.Printf("scheduler: cache series %s: %v", key, err)
		}
		metrics.SeriesIngested.WithLabelValues(SourceOpenMeteo).Inc()
	}

	if run != nil {
		if cerr := s.store.CompleteIngestRun(run); cerr != nil {
			log.Printf("scheduler: complete ingest run: %v", cerr)
		}
	}

	if err != nil {
		return nil, err
	}
	return series, nil
}
