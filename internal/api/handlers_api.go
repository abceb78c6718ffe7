package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/lox/hourlyweather/internal/ingest"
	"github.com/lox/hourlyweather/internal/models"
	"github.com/lox/hourlyweather/internal/store"
)

type searchQuery struct {
	Name  string `validate:"required,max=100"`
	Count int    `validate:"min=0,max=20"`
}

type coordsQuery struct {
	Lat string `validate:"required,latitude"`
	Lon string `validate:"required,longitude"`
}

type weekQuery struct {
	Days int `validate:"min=1,max=16"`
}

type chartQuery struct {
	Metric  string `validate:"required,oneof=temperature_2m precipitation_probability surface_pressure cloud_cover wind_speed_10m"`
	Horizon int    `validate:"min=0,max=168"`
}

// locationRequest selects a saved location by ID or saves and selects a
// new place.
type locationRequest struct {
	ID        int64    `json:"id" validate:"omitempty,min=1"`
	Name      string   `json:"name" validate:"required_without=ID,max=200"`
	Country   string   `json:"country"`
	Admin1    string   `json:"admin1"`
	Latitude  *float64 `json:"latitude" validate:"required_without=ID,omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"required_without=ID,omitempty,longitude"`
	Timezone  string   `json:"timezone" validate:"omitempty,timezone"`
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Detail: err.Error()})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"language":  lang,
		"languages": s.catalog.Languages(),
		"labels":    s.catalog.Labels(lang),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", ingest.DefaultSearchCount)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	q := searchQuery{Name: r.URL.Query().Get("name"), Count: count}
	if err := s.validate.Struct(q); err != nil {
		s.badRequest(w, err)
		return
	}

	places, err := s.geocoder.Search(r.Context(), q.Name, q.Count)
	if err != nil {
		log.Printf("api: search %q: %v", q.Name, err)
		s.writeError(w, r, http.StatusBadGateway, "errorFetchingCityData", err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := coordsQuery{Lat: r.URL.Query().Get("lat"), Lon: r.URL.Query().Get("lon")}
	if err := s.validate.Struct(q); err != nil {
		s.badRequest(w, err)
		return
	}
	lat, _ := strconv.ParseFloat(q.Lat, 64)
	lon, _ := strconv.ParseFloat(q.Lon, 64)

	place, err := s.geocoder.Locate(r.Context(), lat, lon)
	if errors.Is(err, ingest.ErrNoResults) {
		s.writeError(w, r, http.StatusNotFound, "localizationNot", err)
		return
	}
	if err != nil {
		log.Printf("api: locate %.4f,%.4f: %v", lat, lon, err)
		s.writeError(w, r, http.StatusBadGateway, "localizationNot", err)
		return
	}

	s.saveAndSelect(w, r, *place)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.store.ListLocations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.selected(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleSelectLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.badRequest(w, err)
		return
	}

	if req.ID != 0 {
		if err := s.store.SelectLocation(req.ID); errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "noLocation", err)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		loc, err := s.store.GetLocation(req.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, loc)
		return
	}

	s.saveAndSelect(w, r, models.Place{
		Name:      req.Name,
		Country:   req.Country,
		Admin1:    req.Admin1,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Timezone:  req.Timezone,
	})
}

func (s *Server) saveAndSelect(w http.ResponseWriter, r *http.Request, place models.Place) {
	loc, err := s.store.UpsertLocation(place)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.SelectLocation(loc.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	loc.Selected = true
	log.Printf("api: selected %s (%.4f,%.4f %s)", loc.Name, loc.Latitude, loc.Longitude, loc.Timezone)
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleClearLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearSelection(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.store.DeleteLocation(id); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, "noLocation", err)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selected writes a localised 404 when nothing is selected.
func (s *Server) selected(w http.ResponseWriter, r *http.Request) (*models.Location, bool) {
	loc, err := s.store.SelectedLocation()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if loc == nil {
		s.writeError(w, r, http.StatusNotFound, "noLocation", nil)
		return nil, false
	}
	return loc, true
}

// viewFor loads the series for the selected location and pins "now".
func (s *Server) viewFor(w http.ResponseWriter, r *http.Request) (viewContext, bool) {
	loc, ok := s.selected(w, r)
	if !ok {
		return viewContext{}, false
	}
	series, err := s.series.Series(r.Context(), loc.Place)
	if err != nil {
		log.Printf("api: series for %s: %v", loc.Name, err)
		s.writeError(w, r, http.StatusBadGateway, "errorFetchingWeather", err)
		return viewContext{}, false
	}
	lang := s.lang(r)
	return newViewContext(*loc, series, s.now(), lang, s.catalog.Descriptions(lang)), true
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.current())
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", s.days)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(weekQuery{Days: days}); err != nil {
		s.badRequest(w, err)
		return
	}
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.week(days))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	horizon, err := intParam(r, "horizon", s.horizon)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	q := chartQuery{Metric: r.URL.Query().Get("metric"), Horizon: horizon}
	if q.Metric == "" {
		q.Metric = string(models.MetricTemperature)
	}
	if err := s.validate.Struct(q); err != nil {
		s.badRequest(w, err)
		return
	}
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.chart(models.Metric(q.Metric), q.Horizon))
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", s.days)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	horizon, err := intParam(r, "horizon", s.horizon)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(weekQuery{Days: days}); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(chartQuery{Metric: string(models.MetricTemperature), Horizon: horizon}); err != nil {
		s.badRequest(w, err)
		return
	}
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.weather(days, horizon, s.catalog.Labels(v.lang)))
}
