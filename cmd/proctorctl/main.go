// Command proctorctl administers the test control record and question set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// app holds the connections opened in PersistentPreRunE.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	pool    *pgxpool.Pool
	rdb     *redis.Client
	catalog *service.CatalogService
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

var current = &app{}

var rootCmd = &cobra.Command{
	Use:           "proctorctl",
	Short:         "Administer the proctored test session",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		current.cfg = config.Load()
		current.log = logger.New(os.Stderr, current.cfg.LogLevel, current.cfg.LogFormat)

		ctx := cmd.Context()
		pool, err := database.NewPostgresPool(ctx, current.cfg, current.log)
		if err != nil {
			return fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		current.pool = pool

		// Redis only holds cached copies; the commands still work without it.
		var rdb redis.UniversalClient
		if client, err := database.NewRedisClient(ctx, current.cfg, current.log); err != nil {
			current.log.Warn().Err(err).Msg("Redis unavailable, cached config will expire on its own")
		} else {
			current.rdb = client
			rdb = client
		}

		current.catalog = service.NewCatalogService(
			repository.NewControlRepository(pool),
			repository.NewQuestionRepository(pool),
			rdb,
			current.cfg.QuestionCacheTTL,
			current.log,
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		current.close()
	},
}

func main() {
	rootCmd.AddCommand(newControlCmd(), newQuestionsCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		current.close()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
