package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/vcweather/internal/ingest"
	"github.com/lox/vcweather/internal/logging"
	"github.com/lox/vcweather/internal/store"
	"github.com/lox/vcweather/pkg/weather"
)

type Globals struct {
	APIKey   string `name:"api-key" env:"VC_API_KEY" help:"Visual Crossing API key."`
	BaseURL  string `name:"base-url" env:"VC_BASE_URL" default:"${base_url}" help:"Timeline endpoint."`
	Archive  string `name:"archive" env:"VC_ARCHIVE" type:"path" help:"SQLite archive of fetch runs (disabled when empty)."`
	AppEnv   string `name:"env" env:"APP_ENV" enum:"dev,prod" default:"dev" help:"Log format: dev (console) or prod (JSON)."`
	LogLevel string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level."`
}

type CLI struct {
	Globals

	Fetch    FetchCmd    `cmd:"" help:"Fetch weather for a location and date range."`
	Forecast ForecastCmd `cmd:"" help:"Fetch the default 15 day forecast for a location."`
	Runs     RunsCmd     `cmd:"" help:"List archived fetch runs."`
	Days     DaysCmd     `cmd:"" help:"List the days archived for a run."`
	Replay   ReplayCmd   `cmd:"" help:"Map an archived response again without a network call."`
}

// App carries what every command needs once flags are parsed.
type App struct {
	ctx    context.Context
	log    *slog.Logger
	client *weather.Client
	store  *store.Store
	out    io.Writer
}

func (a *App) requireStore() (*store.Store, error) {
	if a.store == nil {
		return nil, errors.New("no archive configured (set --archive or VC_ARCHIVE)")
	}
	return a.store, nil
}

// fetch runs a fetch through the archiver when one is configured.
func (a *App) fetch(location string, opts ...weather.QueryOption) error {
	if a.store == nil {
		return a.client.Fetch(a.ctx, location, opts...)
	}
	runID, err := ingest.NewArchiver(a.client, a.store, a.log).Fetch(a.ctx, location, opts...)
	if runID > 0 {
		a.log.Debug("fetch archived", "run", runID)
	}
	return err
}

type FetchCmd struct {
	Location  string `arg:"" help:"Address, partial address or latitude,longitude."`
	From      string `arg:"" optional:"" help:"Start date (yyyy-MM-dd) or dynamic period such as last30days."`
	To        string `arg:"" optional:"" help:"End date (yyyy-MM-dd)."`
	UnitGroup string `name:"unit-group" short:"u" help:"Unit system: us, uk, metric or base."`
	Include   string `help:"Comma separated sections to include, e.g. days,hours,events."`
	Elements  string `help:"Comma separated weather elements to return."`
	JSON      bool   `name:"json" help:"Print the mapped result as JSON."`
}

func (c *FetchCmd) options() []weather.QueryOption {
	var opts []weather.QueryOption
	if c.From != "" {
		opts = append(opts, weather.DateRange(c.From, c.To))
	}
	if c.UnitGroup != "" {
		opts = append(opts, weather.UnitGroup(c.UnitGroup))
	}
	if c.Include != "" {
		opts = append(opts, weather.Include(splitList(c.Include)...))
	}
	if c.Elements != "" {
		opts = append(opts, weather.Elements(splitList(c.Elements)...))
	}
	return opts
}

func (c *FetchCmd) Run(app *App) error {
	if err := app.fetch(c.Location, c.options()...); err != nil {
		return err
	}
	return printResult(app.out, app.client, c.JSON)
}

type ForecastCmd struct {
	Location string `arg:"" help:"Address, partial address or latitude,longitude."`
	JSON     bool   `name:"json" help:"Print the mapped result as JSON."`
}

func (c *ForecastCmd) Run(app *App) error {
	if err := app.fetch(c.Location); err != nil {
		return err
	}
	return printResult(app.out, app.client, c.JSON)
}

type RunsCmd struct {
	Limit  int  `short:"n" default:"20" help:"Number of runs to show."`
	Failed bool `help:"Only show failed runs."`
}

func (c *RunsCmd) Run(app *App) error {
	st, err := app.requireStore()
	if err != nil {
		return err
	}
	var runs []store.FetchRun
	if c.Failed {
		runs, err = st.RecentErrors(c.Limit)
	} else {
		runs, err = st.RecentRuns(c.Limit)
	}
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	return printRuns(app.out, runs)
}

type DaysCmd struct {
	RunID int64 `arg:"" name:"run" help:"Fetch run ID."`
}

func (c *DaysCmd) Run(app *App) error {
	st, err := app.requireStore()
	if err != nil {
		return err
	}
	days, err := st.RunDays(c.RunID)
	if err != nil {
		return fmt.Errorf("list days: %w", err)
	}
	return printArchivedDays(app.out, days)
}

type ReplayCmd struct {
	RunID int64 `arg:"" name:"run" help:"Fetch run ID."`
	JSON  bool  `name:"json" help:"Print the mapped result as JSON."`
}

func (c *ReplayCmd) Run(app *App) error {
	st, err := app.requireStore()
	if err != nil {
		return err
	}
	body, err := st.GetRunPayload(c.RunID)
	if err != nil {
		return fmt.Errorf("load payload: %w", err)
	}
	if body == nil {
		return fmt.Errorf("run %d has no archived payload", c.RunID)
	}
	if err := app.client.Load(body); err != nil {
		return err
	}
	return printResult(app.out, app.client, c.JSON)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parserOptions configures kong. Flags with an env tag also resolve from
// envFiles; missing files are skipped.
func parserOptions(envFiles ...string) []kong.Option {
	return []kong.Option{
		kong.Name("vcweather"),
		kong.Description("Query the Visual Crossing timeline weather API."),
		kong.UsageOnError(),
		kong.Vars{"base_url": weather.DefaultBaseURL},
		kong.Configuration(kongdotenv.ENVFileReader, envFiles...),
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, parserOptions(".env")...)

	level, err := logging.ParseLevel(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	logger := logging.New(os.Stderr, cli.AppEnv, level)
	slog.SetDefault(logger)

	if err := run(kctx, &cli.Globals, logger); err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context, g *Globals, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &App{
		ctx: ctx,
		log: logger,
		client: weather.NewClient(g.APIKey,
			weather.WithBaseURL(g.BaseURL),
			weather.WithLogger(logger),
		),
		out: os.Stdout,
	}

	if g.Archive != "" {
		db, err := store.Open(g.Archive)
		if err != nil {
			return err
		}
		defer db.Close()

		st := store.New(db, logger)
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		app.store = st
	}

	err := kctx.Run(app)
	if errors.Is(err, weather.ErrConfiguration) {
		return fmt.Errorf("%w (set --api-key or VC_API_KEY)", err)
	}
	return err
}
