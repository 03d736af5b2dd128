// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/catalog"
	"github.com/pdiddy/cookbook/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recipe catalog over a read-only JSON API",
	Long: `Serve exposes the catalog at:

  GET /api/healthz
  GET /api/recipes?q=&tag=&ingredient=&limit=
  GET /api/recipes/{id}
  GET /api/recipes/{id}/markdown

Run "cookbook catalog store" first to build the catalog. With --ingest the
catalog is refreshed before serving.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logs, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(cfg.Catalog, logs.GetLogger("catalog"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ingest, _ := cmd.Flags().GetBool("ingest"); ingest {
		if _, err := store.Ingest(ctx, os.Stdout); err != nil {
			return err
		}
	}

	fmt.Printf("Serving catalog on %s\n", cfg.Serve.Addr)
	return server.New(store, cfg.Serve, logs.GetLogger("server")).ListenAndServe(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: config, :8080)")
	serveCmd.Flags().StringSlice("allow-origin", nil, "CORS allowed origin (repeatable)")
	serveCmd.Flags().String("catalog-dir", "", "catalog directory holding cookbook.db (default: config)")
	serveCmd.Flags().String("recipes-dir", "", "directory of Recipe Documents, used with --ingest")
	serveCmd.Flags().Bool("ingest", false, "refresh the catalog before serving")

	rootCmd.AddCommand(serveCmd)
}
