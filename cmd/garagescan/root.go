package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/garagescan/internal/config"
	"github.com/platinummonkey/garagescan/internal/extract"
	"github.com/platinummonkey/garagescan/internal/garage"
	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/trace"
	"github.com/platinummonkey/garagescan/internal/tracker"
	"github.com/platinummonkey/garagescan/internal/types"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "garagescan",
	Short: "Read fuel fill-ups and service invoices with vision LLMs",
	Long: `garagescan turns photos and documents into vehicle records.

It sends pump and odometer photos, or invoice pages and text, to a list of
LLM providers in preference order and returns schema-validated JSON.

Features:
  - Anthropic, OpenAI and Google providers with automatic fallback
  - Live thinking headlines and raw debug events while a provider streams
  - Optional submission of the records to the vehicle tracker
  - Optional SQLite trace of every request and streamed line`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags; names matching configuration keys override them
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.garagescan.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.StringSlice("providers", nil, "provider preference order (comma-separated: anthropic,openai,google)")
	flags.Duration("request-timeout", 0, "time limit for one extraction including fallbacks")
	flags.String("trace-db", "", "record debug events into this SQLite file")
	flags.Bool("debug", false, "print request, chunk, response and error events to stderr")
	flags.Bool("progress", false, "print thinking headlines to stderr while a provider streams")
}

// app holds the components shared by the subcommands
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	extractor *extract.Extractor
	traces    *trace.Store
	debug     bool
	progress  bool
}

// newApp loads configuration and wires the extractor, logger and optional trace store
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadWithFlags(cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()

	a := &app{cfg: cfg, log: log}
	a.debug, _ = cmd.Flags().GetBool("debug")
	a.progress, _ = cmd.Flags().GetBool("progress")

	if cfg.TraceDB != "" {
		store, err := trace.New(cfg.TraceDB)
		if err != nil {
			return nil, err
		}
		a.traces = store
	}

	a.extractor = extract.New(&extract.Config{
		Logger:    log,
		Endpoints: cfg.Endpoints,
	})

	log.WithFields("providers", providerNames(cfg.ActiveProviders())).Debug("Configuration loaded")
	return a, nil
}

// Close releases the trace store and flushes logs
func (a *app) Close() {
	if a.traces != nil {
		if err := a.traces.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close trace database")
		}
	}
	_ = a.log.Close()
}

// observer builds the debug/progress sinks selected by flags; nil keeps providers non-streaming
func (a *app) observer() *types.Observer {
	var obs *types.Observer
	if a.debug || a.progress {
		obs = &types.Observer{}
		if a.debug {
			obs.OnDebug = printDebugEvent(os.Stderr)
		}
		if a.progress {
			obs.OnProgress = printProgress(os.Stderr)
		}
	}
	if a.traces != nil {
		return a.traces.Observe(obs)
	}
	return obs
}

// callContext bounds one extraction by the configured request timeout
// printReport writes the per-provider attempt summary to stderr when --debug is set
func (a *app) printReport(cmd *cobra.Command, report *extract.Attempts) {
	if !a.debug || report == nil {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
}

func (a *app) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.RequestTimeout)
}

// trackerClient returns the tracker client, or an error when no tracker is configured
func (a *app) trackerClient() (*tracker.Client, error) {
	if !a.cfg.TrackerEnabled() {
		return nil, fmt.Errorf("tracker-url is not configured")
	}
	return tracker.NewClient(a.cfg.TrackerURL,
		tracker.WithAPIKey(a.cfg.TrackerAPIKey),
		tracker.WithLogger(a.log.WithOperation("tracker")),
	), nil
}

// directory returns the vehicle menu and extra fields, from the tracker when configured,
// otherwise from the garage file
func (a *app) directory(ctx context.Context) (*garage.Garage, error) {
	if a.cfg.TrackerEnabled() {
		client, err := a.trackerClient()
		if err != nil {
			return nil, err
		}
		vehicles, err := client.ListVehicles(ctx)
		if err != nil {
			return nil, err
		}
		fields, err := client.ListExtraFields(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Continuing without extra fields")
			fields = nil
		}
		return &garage.Garage{Vehicles: vehicles, ExtraFields: fields}, nil
	}
	return garage.Load(a.cfg.GarageFile)
}

func providerNames(providers []types.ProviderConfig) string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p.Provider))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
