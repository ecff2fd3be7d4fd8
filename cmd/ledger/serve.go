package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledger/infrastructure/database"
	apihttp "ledger/infrastructure/http"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			server, err := apihttp.NewServer(a.cfg, apihttp.Deps{DB: a.db, Ledger: a.ledger, Reports: a.reports}, a.obs)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop HTTP server: %w", err)
			}
			return <-errCh
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			applied, err := database.Migrate(cmd.Context(), a.db, a.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Printf("%s %s\n", ok(), name)
			}
			return nil
		},
	}
}
