package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/cache"
	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Connections are opened on first use so commands only pay for what they touch.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db    *sql.DB
	plex  *services.PlexClient
	cache cache.Store
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, matchCommand, mixCommand, settingsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the config file named by --config, when present, and applies the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			r.config = config
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		default:
			return ctx, err
		}
	}

	level := shared.ParseLogLevel(r.config.Logging.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// after releases whatever connections the command opened.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if r.cache != nil {
		errs = append(errs, r.cache.Close())
		r.cache = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

// database opens the configured database and brings its schema up to date.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

func (r *Runner) playlists() (*repositories.MatchedPlaylistRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewMatchedPlaylistRepository(db), nil
}

func (r *Runner) mixRuns() (*repositories.MixRunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewMixRunRepository(db), nil
}

func (r *Runner) plexClient() (*services.PlexClient, error) {
	if r.plex != nil {
		return r.plex, nil
	}

	client, err := services.NewPlexClient(r.config.Plex, r.httpClient, shared.WithLogger(r.logger, "service", "plex"))
	if err != nil {
		return nil, err
	}
	r.plex = client
	return client, nil
}

// searcher returns the Plex search endpoint behind the result cache.
func (r *Runner) searcher(ctx context.Context) (matching.Searcher, error) {
	plex, err := r.plexClient()
	if err != nil {
		return nil, err
	}

	if r.cache == nil {
		store, err := cache.Open(ctx, r.config.Cache)
		if err != nil {
			r.logger.Warn("search cache unavailable, continuing without it", "error", err)
			return plex, nil
		}
		r.cache = store
	}

	namespace := r.config.Plex.SectionID
	return services.NewCachedSearcher(plex, r.cache, r.config.Cache.TTL.Duration, namespace, r.logger), nil
}

// source resolves a playlist reference to the source that can fetch it.
func (r *Runner) source(ctx context.Context, ref services.SourceRef) (services.PlaylistSource, error) {
	switch ref.Source {
	case services.SpotifySourceName:
		return services.NewSpotifySource(ctx, r.config.Credentials.Spotify, shared.WithLogger(r.logger, "service", "spotify"),
			services.WithSpotifyHTTPClient(r.httpClient))
	case services.FileSourceName:
		return services.NewFileSource(""), nil
	default:
		return nil, fmt.Errorf("%w: unknown playlist source %q", shared.ErrInvalidArgument, ref.Source)
	}
}

func (r *Runner) settingsFile() *repositories.SettingsFile {
	return repositories.NewSettingsFile(r.config.Matching.SettingsPath)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
