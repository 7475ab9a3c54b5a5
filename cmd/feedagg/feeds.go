package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pders01/feedagg/internal/feed"
	"github.com/pders01/feedagg/internal/storage"
)

func newInitCmd(a *app) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and store the built-in feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := feed.NewManager(store, a.cfg).SeedDefaults(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized database with built-in feeds: %s\n", dbLabel(a, db))
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Database path (overrides config)")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var db, url, category string
	var allowPrivate bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a feed and crawl it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			manager := feed.NewManager(store, a.cfg)
			manager.SetPermissiveValidation(allowPrivate)
			if err := manager.SeedDefaults(); err != nil {
				return err
			}
			f, err := manager.AddFeed(cmd.Context(), url, category)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added feed: id=%d url=%s category=%s\n", f.ID, f.URL, f.Category)
			if f.Title != "" {
				fmt.Fprintf(out, "Crawled %q\n", f.Title)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&db, "db", "", "Database path (overrides config)")
	f.StringVar(&url, "url", "", "RSS/Atom feed URL")
	f.StringVar(&category, "category", "", "Optional category name")
	f.BoolVar(&allowPrivate, "allow-private", false, "Accept localhost and private network hosts")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var db string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feeds stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := feed.NewManager(store, a.cfg).SeedDefaults(); err != nil {
				return err
			}
			feeds, err := store.ListFeeds(!all)
			if err != nil {
				return err
			}
			writeFeeds(cmd, feeds)
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Database path (overrides config)")
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive feeds")
	return cmd
}

// writeFeeds prints one line per feed. Built-in feeds are marked with '*',
// inactive ones with '!'.
func writeFeeds(cmd *cobra.Command, feeds []*storage.Feed) {
	out := cmd.OutOrStdout()
	st := newStyles(out)
	fmt.Fprintln(out, st.header.Render(fmt.Sprintf("%d feeds:", len(feeds))))
	for _, f := range feeds {
		marker := "-"
		switch {
		case !f.Active:
			marker = "!"
		case f.Builtin:
			marker = "*"
		}
		title := f.Title
		if title == "" {
			title = "(unknown)"
		}
		fmt.Fprintf(out, "%s %d [%s] %s  -> %s\n",
			marker, f.ID, f.Category, st.title.Render(title), st.link.Render(f.URL))
	}
}

func newToggleCmd(a *app, name string, active bool) *cobra.Command {
	var db string
	short := "Resume crawling a feed"
	if !active {
		short = "Stop crawling a feed without deleting it"
	}
	cmd := &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid feed id %q", args[0])
			}

			store, err := a.openStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetFeedActive(id, active); err != nil {
				if errors.Is(err, storage.ErrFeedNotFound) {
					return fmt.Errorf("no feed with id %d", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Feed %d %sd\n", id, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Database path (overrides config)")
	return cmd
}

func dbLabel(a *app, db string) string {
	if db != "" {
		return db
	}
	return a.cfg.Database.Path
}
