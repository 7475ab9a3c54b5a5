package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var db string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored items by title and summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(db)
			if err != nil {
				return err
			}
			defer store.Close()

			searcher, closeIndex, err := a.searcher(store)
			if err != nil {
				return err
			}
			defer closeIndex()

			results, err := searcher.Search(strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, results)
			}
			st := newStyles(out)
			if len(results) == 0 {
				fmt.Fprintln(out, st.muted.Render("No matches."))
				return nil
			}
			for _, r := range results {
				source := "unknown"
				if r.Feed != nil && r.Feed.Title != "" {
					source = r.Feed.Title
				}
				fmt.Fprintf(out, "- %s %s %s\n  %s",
					st.muted.Render(fmt.Sprintf("%.2f", r.Score)),
					st.source.Render("["+source+"]"),
					st.title.Render(r.Item.Title),
					st.link.Render(r.Item.Link))
				if r.Item.Published != nil {
					fmt.Fprint(out, " "+st.muted.Render("("+r.Item.Published.Format(time.RFC3339)+")"))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Database path (overrides config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
