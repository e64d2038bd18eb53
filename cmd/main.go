package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/terrenos-crm-backend/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "terrenos",
	Short: "Land plot CRM backend",
	Long: `HTTP API for the land plot CRM and its WhatsApp inbox.

Available subcommands:
  serve   - Run the API server and background workers
  migrate - Create or update the database schema
  seed    - Load pipeline stages and users from the seed file
  user    - Manage user accounts`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and background workers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, userCmd)
}

func main() {
	// No subcommand means serve.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil {
		a.Log.Error("Server stopped", "error", err)
		return err
	}
	a.Log.Info("Server shut down")
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
