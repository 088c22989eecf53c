package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/router"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()

			if migrateUp {
				if err := rt.migrate(ctx); err != nil {
					return err
				}
			}
			if err := rt.bootstrapStaff(ctx); err != nil {
				return err
			}

			rdb := config.NewRedisClient()
			if rdb == nil {
				log.Warn("redis unavailable; rate limiting and stats cache disabled")
			} else {
				defer func() { _ = rdb.Close() }()
			}

			svc, err := rt.newService(rdb)
			if err != nil {
				return err
			}

			if cfg.EventsEnabled {
				go func() {
					err := queue.StartReservationConsumer(ctx, queue.ConsumerConfig{
						URL:     cfg.RabbitURL,
						Queue:   cfg.EventsQueue,
						LogPath: cfg.EventsLogPath,
					}, log)
					if err != nil && !errors.Is(err, context.Canceled) {
						log.WithError(err).Error("reservation consumer stopped")
					}
				}()
			}

			e := router.New(router.Deps{
				Secret:       cfg.JWTSecret,
				Log:          log,
				Reservations: handler.NewReservationHandler(svc, log, cfg.JWTSecret, cfg.GuestTTLMin),
				Auth:         handler.NewAuthHandler(cfg, rt.users, rt.tokens, log),
				Redis:        rdb,
				RateLimit:    config.LoadRateLimitConfig(),
				Cache:        config.LoadCacheConfig(),
			})
			e.Server.ReadHeaderTimeout = 5 * time.Second

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = e.Shutdown(shutdownCtx)
			}()

			addr := ":" + cfg.Port
			log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
