package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/feedagg/internal/api"
	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/feed"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var db, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored feeds and items over HTTP",
		Long:  "Serve exposes a read-only JSON API over the database. It never crawls; run fetch for that.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

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

			handler := api.NewHandler(store, feed.NewManager(store, a.cfg), searcher)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			debuglog.Infof("shutting down HTTP server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Database path (overrides config)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
