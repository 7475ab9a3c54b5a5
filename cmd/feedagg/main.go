package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/feedagg/internal/config"
	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/search"
	"github.com/pders01/feedagg/internal/storage"
)

// Version is the version of the application, set at build time
var Version = "dev"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	_ = debuglog.Close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "feedagg",
		Short:         "RSS/Atom feed aggregator",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			showBanner(cmd.OutOrStdout())
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")

	root.AddCommand(
		newFetchCmd(a),
		newSourcesCmd(a),
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newToggleCmd(a, "enable", true),
		newToggleCmd(a, "disable", false),
		newSearchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and configures logging. Subcommands apply
// their own flag overrides afterwards.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	a.cfg = cfg
	return nil
}

// openStore opens the configured database, with dbPath taking precedence
// over the config file when set.
func (a *app) openStore(dbPath string) (storage.Store, error) {
	path := a.cfg.Database.Path
	if dbPath != "" {
		path = dbPath
	}
	store, err := storage.Open(a.cfg.Database.Driver, path, a.cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening %s store at %s: %w", a.cfg.Database.Driver, path, err)
	}
	debuglog.Debugf("opened %s store at %s", a.cfg.Database.Driver, path)
	return store, nil
}

// searcher picks the bleve index when one is configured and falls back to
// scanning the store. The returned closer releases the index.
func (a *app) searcher(store storage.Store) (search.Searcher, func(), error) {
	if a.cfg.Database.SearchIndex == "" {
		return search.NewEngine(store), func() {}, nil
	}
	engine, err := search.NewBleveEngine(store, a.cfg.Database.SearchIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("opening search index: %w", err)
	}
	return engine, func() {
		if err := engine.Close(); err != nil {
			debuglog.Warnf("closing search index: %v", err)
		}
	}, nil
}
