package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tonetuner/tonetuner/internal/config"
	"github.com/tonetuner/tonetuner/internal/database"
)

var (
	cfg       *config.Config
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:           "tonectl",
	Short:         "Operator tool for the tone rewrite service",
	Long:          `tonectl runs maintenance tasks against the same Postgres and Redis the API uses. It reads the API's .env file and environment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output")
	rootCmd.SetErrPrefix("tonectl:")
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pool, nil
}
