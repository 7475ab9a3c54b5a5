package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/feed"
	"github.com/pders01/feedagg/internal/search"
)

type fetchOptions struct {
	sources  string
	useFile  bool
	db       string
	category string
	since    int
	limit    int
	json     bool
	force    bool
}

func newFetchCmd(a *app) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch feeds and print the newest items",
		Long: `Fetch crawls every active feed in the database and prints the stored items.
With --sources or --use-file the source-list file is fetched directly and nothing
is persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.useFile || opts.sources != "" {
				return a.fetchFromFile(cmd, opts)
			}
			return a.fetchFromStore(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sources, "sources", "", "Source-list JSON file (switches to file mode)")
	f.BoolVar(&opts.useFile, "use-file", false, "Fetch the source-list file instead of the database")
	f.StringVar(&opts.db, "db", "", "Database path (overrides config)")
	f.StringVar(&opts.category, "category", "", "Only include feeds in this category")
	f.IntVar(&opts.since, "since", 0, "Only include items from the last N hours")
	f.IntVar(&opts.limit, "limit", 0, "Maximum number of items to print")
	f.BoolVar(&opts.json, "json", false, "Print items as JSON")
	f.BoolVar(&opts.force, "force", false, "Ignore cached ETag/Last-Modified validators")
	return cmd
}

// resolveSourcesPath returns the file to read in file mode: the flag, then
// the config, then whatever DiscoverSourcesFile finds. Empty means defaults.
func (a *app) resolveSourcesPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if a.cfg.Sources.File != "" {
		return a.cfg.Sources.File
	}
	return feed.DiscoverSourcesFile()
}

func (a *app) fetchFromFile(cmd *cobra.Command, opts *fetchOptions) error {
	path := a.resolveSourcesPath(opts.sources)
	sources := feed.LoadSourcesFile(path)

	agg := feed.NewAggregator(a.cfg)
	items := agg.Aggregate(cmd.Context(), sources, feed.Options{
		Category:   opts.category,
		SinceHours: opts.since,
		Limit:      opts.limit,
	})

	if err := writeItemsAs(cmd.OutOrStdout(), items, opts.json); err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "\n[info] no sources.json found, using the built-in sources. "+
			"Run without --use-file to persist items in the database.")
	}
	return nil
}

func (a *app) fetchFromStore(cmd *cobra.Command, opts *fetchOptions) error {
	store, err := a.openStore(opts.db)
	if err != nil {
		return err
	}
	defer store.Close()

	manager := feed.NewManager(store, a.cfg)
	manager.SetForceRefresh(opts.force)
	if err := manager.SeedDefaults(); err != nil {
		return err
	}

	if a.cfg.Database.SearchIndex != "" {
		searcher, closeIndex, err := a.searcher(store)
		if err != nil {
			debuglog.Warnf("search index unavailable: %v", err)
		} else {
			defer closeIndex()
			if l, ok := searcher.(search.UpdateListener); ok {
				manager.SetUpdateListener(l)
			}
		}
	}

	n, err := manager.Crawl(cmd.Context())
	if err != nil {
		return err
	}
	debuglog.Infof("crawl saw %d items", n)

	export := feed.ExportOptions{SinceHours: opts.since, Limit: opts.limit}
	if opts.category != "" {
		ids, err := manager.FeedIDsForCategory(opts.category)
		if err != nil {
			return err
		}
		export.FeedIDs = ids
	}

	items, err := manager.Export(export)
	if err != nil {
		return err
	}
	return writeItemsAs(cmd.OutOrStdout(), items, opts.json)
}

func newSourcesCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show the categories of the source-list file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved := a.resolveSourcesPath(path)
			sources := feed.LoadSourcesFile(resolved)

			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintln(out, st.header.Render("Categories and feed counts:"))
			for _, c := range sources {
				fmt.Fprintf(out, "- %s: %d feeds\n", c.Name, len(c.URLs))
			}
			if resolved == "" {
				fmt.Fprintln(out, st.muted.Render("\nCreate sources.json in the working directory to override the built-in sources."))
			} else {
				fmt.Fprintf(out, "\nUsing source file: %s\n", resolved)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "sources", "", "Source-list JSON file")
	return cmd
}
