package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/lox/hourlyweather/internal/api"
	"github.com/lox/hourlyweather/internal/forecast"
	"github.com/lox/hourlyweather/internal/httputil"
	"github.com/lox/hourlyweather/internal/i18n"
	"github.com/lox/hourlyweather/internal/ingest"
	"github.com/lox/hourlyweather/internal/models"
	"github.com/lox/hourlyweather/internal/store"
)

type CLI struct {
	UserAgent   string `help:"User-Agent sent to upstream providers." env:"HOURLYWEATHER_USER_AGENT"`
	ForecastURL string `help:"Open-Meteo forecast API base URL." default:"${forecast_url}" env:"HOURLYWEATHER_FORECAST_URL"`
	GeocodeURL  string `help:"Open-Meteo geocoding API base URL." default:"${geocode_url}" env:"HOURLYWEATHER_GEOCODE_URL"`
	ReverseURL  string `help:"Nominatim reverse geocoding base URL." default:"${reverse_url}" env:"HOURLYWEATHER_REVERSE_URL"`
	Catalog     string `help:"YAML file layered over the built-in labels and weather-code tables." type:"existingfile" env:"HOURLYWEATHER_CATALOG"`
	Lang        string `help:"Default language." default:"en" env:"HOURLYWEATHER_LANG"`
	Days        int    `help:"Days in the weekly view." default:"7" env:"HOURLYWEATHER_DAYS"`
	Horizon     int    `help:"Chart horizon in hours." default:"24" env:"HOURLYWEATHER_HORIZON"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Run the HTTP server and refresh scheduler."`
	Show   ShowCmd   `cmd:"" help:"Print current and weekly weather for a place."`
	Search SearchCmd `cmd:"" help:"Search places by name."`
}

func (c *CLI) catalog() (*i18n.Catalog, error) {
	return i18n.Load(c.Catalog)
}

func (c *CLI) forecastClient() *ingest.ForecastClient {
	return ingest.NewForecastClient(c.ForecastURL, ingest.DefaultForecastDays, httputil.NewClient(c.UserAgent))
}

func (c *CLI) geocodeClient() *ingest.GeocodeClient {
	return ingest.NewGeocodeClient(c.GeocodeURL, c.ReverseURL, httputil.NewClient(c.UserAgent))
}

type ServeCmd struct {
	DB       string        `help:"Path to SQLite database." default:"data/hourlyweather.db" env:"HOURLYWEATHER_DB"`
	Port     string        `help:"HTTP server port." default:"8080" env:"PORT"`
	Interval time.Duration `help:"Refresh interval for saved locations." default:"30m" env:"HOURLYWEATHER_REFRESH_INTERVAL"`
	CacheTTL time.Duration `help:"How long a fetched series stays fresh." default:"1h" env:"HOURLYWEATHER_CACHE_TTL"`
	NoPoll   bool          `help:"Disable background refresh (server only, for local dev)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	catalog, err := cli.catalog()
	if err != nil {
		return err
	}

	db, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	scheduler := ingest.NewScheduler(st, cli.forecastClient(), c.Interval, c.CacheTTL)
	server := api.NewServer(st, scheduler, cli.geocodeClient(), catalog, api.Config{
		Port:     c.Port,
		Horizon:  cli.Horizon,
		Days:     cli.Days,
		Language: cli.Lang,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", c.Port)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

type ShowCmd struct {
	City string   `help:"Place name to look up." xor:"place" required:""`
	Lat  *float64 `help:"Latitude (with --lon)." xor:"place" required:""`
	Lon  *float64 `help:"Longitude (with --lat)."`
}

func (c *ShowCmd) Run(cli *CLI) error {
	catalog, err := cli.catalog()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	place, err := c.resolve(ctx, cli.geocodeClient())
	if err != nil {
		return err
	}

	series, _, _, err := cli.forecastClient().FetchHourly(ctx, place.Latitude, place.Longitude, place.Timezone)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}
	if flags := ingest.ValidateSeries(series, ingest.DefaultForecastDays*24); len(flags) > 0 {
		log.Printf("show: quality flags: %v", flags)
	}

	lang := catalog.Match(cli.Lang)
	printWeather(os.Stdout, catalog, lang, place, series, time.Now(), cli.Days)
	return nil
}

func (c *ShowCmd) resolve(ctx context.Context, geo *ingest.GeocodeClient) (models.Place, error) {
	if c.City == "" {
		if c.Lat == nil || c.Lon == nil {
			return models.Place{}, errors.New("--lat and --lon must be given together")
		}
		return models.Place{Name: fmt.Sprintf("%.4f,%.4f", *c.Lat, *c.Lon), Latitude: *c.Lat, Longitude: *c.Lon}, nil
	}
	places, err := geo.Search(ctx, c.City, 1)
	if err != nil {
		return models.Place{}, fmt.Errorf("search %q: %w", c.City, err)
	}
	if len(places) == 0 {
		return models.Place{}, fmt.Errorf("search %q: %w", c.City, ingest.ErrNoResults)
	}
	return places[0], nil
}

func printWeather(out io.Writer, catalog *i18n.Catalog, lang string, place models.Place, series *models.HourlySeries, now time.Time, days int) {
	loc := forecast.SeriesZone(series, place.Timezone)
	desc := catalog.Descriptions(lang)
	unit := func(m models.Metric) string { return series.Unit(m) }

	cur := forecast.Current(series, now, loc, desc)
	name := place.Name
	if place.Country != "" {
		name += ", " + place.Country
	}
	fmt.Fprintf(out, "%s (%s)\n", name, loc)
	fmt.Fprintf(out, "%s: %s\n", catalog.Label(lang, "currentWeather"), now.In(loc).Format("Mon 2 Jan 15:04"))
	fmt.Fprintf(out, "  %s, %.1f%s\n", cur.Description, cur.Temperature, unit(models.MetricTemperature))
	fmt.Fprintf(out, "  %s %.0f%s  %s %.0f%s  %s %.0f%s  %s %.1f%s\n\n",
		catalog.Label(lang, "pressure"), cur.Pressure, unit(models.MetricPressure),
		catalog.Label(lang, "cloudCover"), cur.CloudCover, unit(models.MetricCloudCover),
		catalog.Label(lang, "precipitation"), cur.Precipitation, unit(models.MetricPrecipitation),
		catalog.Label(lang, "windSpeed"), cur.WindSpeed, unit(models.MetricWindSpeed))

	fmt.Fprintln(out, catalog.Label(lang, "weeklyWeather"))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\t\t%s\t\t%s\t\n", catalog.Label(lang, "day"), catalog.Label(lang, "night"))
	for _, d := range forecast.BuildWeek(series, loc, now, days, desc) {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%s\t%s\t%.1f%s\t%s\t\n",
			d.Weekday[:3], d.Date.Format("02 Jan"),
			d.Day.Temperature, unit(models.MetricTemperature), d.Day.Description,
			d.Night.Temperature, unit(models.MetricTemperature), d.Night.Description)
	}
	tw.Flush()
}

type SearchCmd struct {
	Name  string `arg:"" help:"Place name."`
	Count int    `help:"Maximum results." default:"5"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	places, err := cli.geocodeClient().Search(context.Background(), c.Name, c.Count)
	if err != nil {
		return err
	}
	if len(places) == 0 {
		return fmt.Errorf("search %q: %w", c.Name, ingest.ErrNoResults)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREGION\tCOUNTRY\tLAT\tLON\tTIMEZONE")
	for _, p := range places {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n", p.ID, p.Name, p.Admin1, p.Country, p.Latitude, p.Longitude, p.Timezone)
	}
	return tw.Flush()
}

func main() {
	// A missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: load .env: %v", err)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("hourlyweather"),
		kong.Description("Hourly weather forecasts for saved locations."),
		kong.UsageOnError(),
		kong.Vars{
			"forecast_url": ingest.DefaultForecastURL,
			"geocode_url":  ingest.DefaultGeocodeURL,
			"reverse_url":  ingest.DefaultReverseURL,
		},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
