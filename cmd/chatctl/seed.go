package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/noah-isme/homefix-api/internal/config"
	"github.com/noah-isme/homefix-api/internal/database"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
	"github.com/noah-isme/homefix-api/internal/service"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write demo users, catalog and threads straight into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, _ := cmd.Flags().GetInt("customers")
			professionals, _ := cmd.Flags().GetInt("professionals")
			seed, _ := cmd.Flags().GetInt64("seed")
			threads, _ := cmd.Flags().GetBool("threads")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cliLogger(cmd)

			db, err := database.ConnectPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			var redisClient *redis.Client
			if cfg.RedisURL != "" {
				if client, err := database.ConnectRedis(cmd.Context(), cfg.RedisURL); err != nil {
					logger.Warn().Err(err).Msg("redis unavailable, caches will not be refreshed")
				} else {
					redisClient = client
					defer redisClient.Close()
				}
			}

			hub := realtime.NewHub(realtime.Options{Redis: redisClient, ChannelBase: cfg.RealtimeChannel}, logger)
			validate := validator.New(validator.WithRequiredStructEnabled())
			users := repository.NewUserRepository(db)
			presence := service.NewPresenceService(users, redisClient, hub, cfg.PresenceCacheTTL, logger)
			chat := service.NewChatService(repository.NewThreadRepository(db), repository.NewMessageRepository(db), presence, hub, validate, logger)
			catalog := service.NewCatalogService(repository.NewCatalogRepository(db), redisClient, cfg.CatalogCacheTTL, logger)
			seeder := service.NewSeedService(users, repository.NewProfileRepository(db), catalog, chat, logger)

			report, err := seeder.Seed(cmd.Context(), service.SeedOptions{
				Customers:     customers,
				Professionals: professionals,
				Seed:          seed,
				StartThreads:  threads,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "users=%d profiles=%d categories=%d threads=%d messages=%d\n",
				report.Users, report.Profiles, report.Categories, report.Threads, report.Messages)
			return nil
		},
	}

	cmd.Flags().Int("customers", 5, "number of customers")
	cmd.Flags().Int("professionals", 3, "number of professionals")
	cmd.Flags().Int64("seed", time.Now().UnixNano(), "random seed; reuse it to reproduce a data set")
	cmd.Flags().Bool("threads", true, "open a thread with a first message per customer")
	return cmd
}
