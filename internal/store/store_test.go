package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/hourlyweather/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

var (
	warsaw = models.Place{Name: "Warsaw", Country: "Poland", Admin1: "Masovia", Latitude: 52.2298, Longitude: 21.0118, Timezone: "Europe/Warsaw"}
	krakow = models.Place{Name: "Kraków", Country: "Poland", Latitude: 50.0614, Longitude: 19.9366, Timezone: "Europe/Warsaw"}
)

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != migrations[len(migrations)-1].Version {
		t.Errorf("version = %d, want %d", v, migrations[len(migrations)-1].Version)
	}
}

func TestUpsertLocation(t *testing.T) {
	store := setupTestStore(t)

	loc, err := store.UpsertLocation(warsaw)
	if err != nil {
		t.Fatalf("UpsertLocation: %v", err)
	}
	if loc.ID == 0 {
		t.Error("ID not assigned")
	}
	if loc.Selected {
		t.Error("new location should not be selected")
	}

	renamed := warsaw
	renamed.Name = "Warszawa"
	again, err := store.UpsertLocation(renamed)
	if err != nil {
		t.Fatalf("UpsertLocation again: %v", err)
	}
	if again.ID != loc.ID {
		t.Errorf("ID = %d, want %d (same coordinates)", again.ID, loc.ID)
	}
	if again.Name != "Warszawa" {
		t.Errorf("Name = %q, want Warszawa", again.Name)
	}

	noZone := krakow
	noZone.Timezone = ""
	k, err := store.UpsertLocation(noZone)
	if err != nil {
		t.Fatalf("UpsertLocation no zone: %v", err)
	}
	if k.Timezone != "GMT" {
		t.Errorf("Timezone = %q, want GMT", k.Timezone)
	}

	nearby := warsaw
	nearby.Name = "Warsaw Centre"
	nearby.Latitude, nearby.Longitude = 52.22981, 21.01184
	near, err := store.UpsertLocation(nearby)
	if err != nil {
		t.Fatalf("UpsertLocation nearby: %v", err)
	}
	if near.ID != loc.ID {
		t.Errorf("ID = %d, want %d (same rounded cell)", near.ID, loc.ID)
	}
	if near.Latitude != 52.2298 || near.Longitude != 21.0118 {
		t.Errorf("coords = %v,%v, want rounded 52.2298,21.0118", near.Latitude, near.Longitude)
	}
	if LocationKey(near.Latitude, near.Longitude) != LocationKey(nearby.Latitude, nearby.Longitude) {
		t.Error("stored coordinates and raw coordinates should share a cache key")
	}

	all, err := store.ListLocations()
	if err != nil {
		t.Fatalf("ListLocations: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(locations) = %d, want 2", len(all))
	}
}

func TestSelectLocation(t *testing.T) {
	store := setupTestStore(t)

	sel, err := store.SelectedLocation()
	if err != nil {
		t.Fatalf("SelectedLocation: %v", err)
	}
	if sel != nil {
		t.Fatalf("expected no selection, got %+v", sel)
	}

	w, _ := store.UpsertLocation(warsaw)
	k, _ := store.UpsertLocation(krakow)

	if err := store.SelectLocation(w.ID); err != nil {
		t.Fatalf("SelectLocation: %v", err)
	}
	if err := store.SelectLocation(k.ID); err != nil {
		t.Fatalf("SelectLocation: %v", err)
	}

	sel, err = store.SelectedLocation()
	if err != nil {
		t.Fatalf("SelectedLocation: %v", err)
	}
	if sel == nil || sel.ID != k.ID {
		t.Fatalf("selected = %+v, want Kraków", sel)
	}

	if err := store.SelectLocation(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("SelectLocation(missing) = %v, want ErrNotFound", err)
	}
	// A failed select keeps the previous one.
	sel, _ = store.SelectedLocation()
	if sel == nil || sel.ID != k.ID {
		t.Errorf("selection lost after failed select: %+v", sel)
	}

	if err := store.ClearSelection(); err != nil {
		t.Fatalf("ClearSelection: %v", err)
	}
	sel, _ = store.SelectedLocation()
	if sel != nil {
		t.Errorf("selection = %+v after clear, want nil", sel)
	}
}

func TestDeleteLocation(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	w, _ := store.UpsertLocation(warsaw)
	key := LocationKey(w.Latitude, w.Longitude)
	if err := store.PutSeries(key, testSeries(), now, time.Hour); err != nil {
		t.Fatalf("PutSeries: %v", err)
	}

	if err := store.DeleteLocation(w.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}
	if _, err := store.GetLocation(w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLocation after delete = %v, want ErrNotFound", err)
	}
	got, err := store.GetSeries(key, now)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if got != nil {
		t.Error("cached series should be removed with its location")
	}
	if err := store.DeleteLocation(w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func testSeries() *models.HourlySeries {
	return &models.HourlySeries{
		Start:     time.Date(2026, 10, 17, 0, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Timezone:  "Europe/Warsaw",
		UTCOffset: 7200,
		Latitude:  52.23,
		Longitude: 21.01,
		Units:     map[models.Metric]string{models.MetricTemperature: "°C"},
		Metrics: map[models.Metric]models.Samples{
			models.MetricTemperature: {
				{Float64: 11.5, Valid: true},
				{},
				{Float64: -0.5, Valid: true},
			},
			models.MetricWeatherCode: {},
		},
	}
}

func TestSeriesCache(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	key := LocationKey(52.2298, 21.0118)

	got, err := store.GetSeries(key, now)
	if err != nil {
		t.Fatalf("GetSeries empty: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing key")
	}

	if err := store.PutSeries(key, testSeries(), now, 30*time.Minute); err != nil {
		t.Fatalf("PutSeries: %v", err)
	}

	got, err = store.GetSeries(key, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached series")
	}
	temps, ok := got.Samples(models.MetricTemperature)
	if !ok || len(temps) != 3 {
		t.Fatalf("temperature samples = %v (present %v)", temps, ok)
	}
	if !temps[0].Valid || temps[0].Float64 != 11.5 {
		t.Errorf("temps[0] = %+v, want 11.5", temps[0])
	}
	if temps[1].Valid {
		t.Error("null sample should survive the cache as invalid")
	}
	if codes, ok := got.Samples(models.MetricWeatherCode); !ok || len(codes) != 0 {
		t.Errorf("empty metric should stay present and empty, got %v %v", codes, ok)
	}
	if _, ok := got.Samples(models.MetricWindSpeed); ok {
		t.Error("absent metric should stay absent")
	}
	if got.UTCOffset != 7200 {
		t.Errorf("UTCOffset = %d, want 7200", got.UTCOffset)
	}
	if got.Unit(models.MetricTemperature) != "°C" {
		t.Errorf("unit = %q", got.Unit(models.MetricTemperature))
	}
	if !got.Start.Equal(testSeries().Start) {
		t.Errorf("Start = %v, want %v", got.Start, testSeries().Start)
	}

	got, err = store.GetSeries(key, now.Add(31*time.Minute))
	if err != nil {
		t.Fatalf("GetSeries expired: %v", err)
	}
	if got != nil {
		t.Error("expired series should not be returned")
	}

	n, err := store.PruneSeries(now.Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneSeries: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}

func TestPutSeries_Nil(t *testing.T) {
	store := setupTestStore(t)
	if err := store.PutSeries("k", nil, time.Now(), time.Hour); err == nil {
		t.Error("expected error for nil series")
	}
}

func TestIngestRuns(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.StartIngestRun("open-meteo", "v1/forecast", "52.2298,21.0118")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	ok.Success = true
	ok.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	ok.HoursParsed = sql.NullInt64{Int64: 384, Valid: true}
	ok.QualityFlags = []string{"null_samples"}
	if err := store.CompleteIngestRun(ok); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	failed, err := store.StartIngestRun("open-meteo", "v1/forecast", "")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	failed.Fail(errors.New("upstream 503"))
	if err := store.CompleteIngestRun(failed); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	if err := store.CompleteIngestRun(nil); err != nil {
		t.Errorf("CompleteIngestRun(nil) = %v", err)
	}

	health, err := store.GetIngestHealth(7)
	if err != nil {
		t.Fatalf("GetIngestHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	h := health[0]
	if h.TotalRuns != 2 || h.SuccessRuns != 1 || h.FailedRuns != 1 || h.FlaggedRuns != 1 {
		t.Errorf("health = %+v", h)
	}
	if h.HoursParsed != 384 {
		t.Errorf("HoursParsed = %d, want 384", h.HoursParsed)
	}

	errs, err := store.GetRecentIngestErrors(10)
	if err != nil {
		t.Fatalf("GetRecentIngestErrors: %v", err)
	}
	if len(errs) != 1 || errs[0].ErrorMessage.String != "upstream 503" {
		t.Errorf("recent errors = %+v", errs)
	}
}

func TestRawPayloads(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.StartIngestRun("open-meteo", "v1/forecast", "k")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	payload := []byte(`{"hourly":{"temperature_2m":[1,2,3]}}`)

	id, err := store.StoreRawPayload(&run.ID, "open-meteo", "v1/forecast", "k", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	if id == 0 {
		t.Fatal("expected payload id")
	}

	dup, err := store.StoreRawPayload(nil, "open-meteo", "v1/forecast", "k", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload dup: %v", err)
	}
	if dup != 0 {
		t.Errorf("duplicate payload id = %d, want 0", dup)
	}

	got, err := store.GetRawPayload(id)
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s", got)
	}

	sum := sha256.Sum256(payload)
	byHash, err := store.GetRawPayloadByHash(hex.EncodeToString(sum[:]))
	if err != nil {
		t.Fatalf("GetRawPayloadByHash: %v", err)
	}
	if byHash == nil || byHash.ID != id || byHash.LocationKey.String != "k" {
		t.Errorf("by hash = %+v, want id %d", byHash, id)
	}
	if missing, err := store.GetRawPayloadByHash("nope"); err != nil || missing != nil {
		t.Errorf("unknown hash = %+v, %v", missing, err)
	}

	forRun, err := store.GetRawPayloadForRun(run.ID)
	if err != nil {
		t.Fatalf("GetRawPayloadForRun: %v", err)
	}
	if forRun == nil || forRun.ID != id {
		t.Errorf("for run = %+v, want id %d", forRun, id)
	}
	if none, err := store.GetRawPayloadForRun(run.ID + 100); err != nil || none != nil {
		t.Errorf("unknown run = %+v, %v", none, err)
	}
	if _, err := store.GetRawPayload(id + 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRawPayload(missing) = %v, want ErrNotFound", err)
	}

	stats, err := store.GetRawPayloadStats()
	if err != nil {
		t.Fatalf("GetRawPayloadStats: %v", err)
	}
	if stats.TotalCount != 1 || stats.CountBySource["open-meteo"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	n, err := store.CleanupOldRawPayloads(30)
	if err != nil {
		t.Fatalf("CleanupOldRawPayloads: %v", err)
	}
	if n != 0 {
		t.Errorf("cleaned %d fresh payloads, want 0", n)
	}
}
