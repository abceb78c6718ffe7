package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/hourlyweather/internal/i18n"
	"github.com/lox/hourlyweather/internal/models"
	"github.com/lox/hourlyweather/internal/store"
)

const (
	DefaultHorizon = 24
	DefaultDays    = 7
	MaxDays        = 16
	MaxHorizon     = 7 * 24
)

// SeriesSource supplies the hourly series for a place, cached or fresh.
type SeriesSource interface {
	Series(ctx context.Context, place models.Place) (*models.HourlySeries, error)
}

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Search(ctx context.Context, name string, count int) ([]models.Place, error)
	Locate(ctx context.Context, lat, lon float64) (*models.Place, error)
}

type Config struct {
	Port     string
	Horizon  int
	Days     int
	Language string
}

type Server struct {
	store    *store.Store
	series   SeriesSource
	geocoder Geocoder
	catalog  *i18n.Catalog
	validate *validator.Validate
	port     string
	horizon  int
	days     int
	language string
	now      func() time.Time
}

func NewServer(st *store.Store, series SeriesSource, geocoder Geocoder, catalog *i18n.Catalog, cfg Config) *Server {
	if cfg.Horizon <= 0 || cfg.Horizon > MaxHorizon {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.Days <= 0 || cfg.Days > MaxDays {
		cfg.Days = DefaultDays
	}
	if catalog == nil {
		catalog = i18n.Default()
	}
	if cfg.Language == "" {
		cfg.Language = i18n.DefaultLanguage
	}
	return &Server{
		store:    st,
		series:   series,
		geocoder: geocoder,
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		port:     cfg.Port,
		horizon:  cfg.Horizon,
		days:     cfg.Days,
		language: cfg.Language,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used to place "now" on the series.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/locate", s.handleLocate)
	mux.HandleFunc("GET /api/locations", s.handleLocations)
	mux.HandleFunc("GET /api/location", s.handleGetLocation)
	mux.HandleFunc("POST /api/location", s.handleSelectLocation)
	mux.HandleFunc("DELETE /api/location", s.handleClearLocation)
	mux.HandleFunc("DELETE /api/locations/{id}", s.handleDeleteLocation)
	mux.HandleFunc("GET /api/current", s.handleCurrent)
	mux.HandleFunc("GET /api/week", s.handleWeek)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/weather", s.handleWeather)
	mux.HandleFunc("GET /api/ingest/runs/{id}/payload", s.handleRunPayload)
	mux.HandleFunc("GET /api/payloads/{hash}", s.handlePayloadByHash)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status         string                      `json:"status"`
	MigrationLevel int                         `json:"migration_version"`
	SavedLocations int                         `json:"saved_locations"`
	Selected       *models.Location            `json:"selected,omitempty"`
	Ingest         []store.IngestHealthSummary `json:"ingest,omitempty"`
	RecentFailures []string                    `json:"recent_failures,omitempty"`
	Payloads       *store.RawPayloadStats      `json:"raw_payloads,omitempty"`
	Errors         []string                    `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}

	version, err := s.store.MigrationVersion()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	health.MigrationLevel = version

	if locations, err := s.store.ListLocations(); err != nil {
		health.Errors = append(health.Errors, "locations: "+err.Error())
	} else {
		health.SavedLocations = len(locations)
	}
	if sel, err := s.store.SelectedLocation(); err != nil {
		health.Errors = append(health.Errors, "selected: "+err.Error())
	} else {
		health.Selected = sel
	}
	if ingest, err := s.store.GetIngestHealth(1); err != nil {
		health.Errors = append(health.Errors, "ingest: "+err.Error())
	} else {
		health.Ingest = ingest
		for _, h := range ingest {
			if h.TotalRuns > 0 && h.SuccessRuns == 0 {
				health.Status = "degraded"
			}
		}
	}
	if runs, err := s.store.GetRecentIngestErrors(5); err != nil {
		health.Errors = append(health.Errors, "ingest errors: "+err.Error())
	} else {
		for _, run := range runs {
			health.RecentFailures = append(health.RecentFailures,
				fmt.Sprintf("run %d %s %s %s: %s", run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Source, run.Endpoint, run.ErrorMessage.String))
		}
	}
	if stats, err := s.store.GetRawPayloadStats(); err != nil {
		health.Errors = append(health.Errors, "raw payloads: "+err.Error())
	} else {
		health.Payloads = stats
	}
	if len(health.Errors) > 0 {
		health.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError sends the localised label for key as the error text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, key string, detail error) {
	resp := errorResponse{Error: s.catalog.Label(s.lang(r), key)}
	if detail != nil {
		resp.Detail = detail.Error()
	}
	writeJSON(w, status, resp)
}

// lang picks the response language from ?lang=, then Accept-Language,
// then the configured default.
func (s *Server) lang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return s.catalog.Match(l)
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		return s.catalog.Match(h)
	}
	return s.catalog.Match(s.language)
}
