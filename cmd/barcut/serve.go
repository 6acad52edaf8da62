package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/piwi3910/barcut/internal/api"
	"github.com/piwi3910/barcut/internal/cache"
	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/config"
	"github.com/piwi3910/barcut/pkg/logger"
)

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the planning HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: cfg.Server.Port, EnvVars: []string{"PORT"}},
		},
		Action: func(c *cli.Context) error {
			if cfg.Server.Mode == "release" {
				gin.SetMode(gin.ReleaseMode)
			}

			opt, err := newOptimizer(c, cfg)
			if err != nil {
				return err
			}
			store, err := openStore(c)
			if err != nil {
				return err
			}
			defer store.Close()

			planCache, err := cache.NewPlanCache(cfg.Cache)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("Plan cache unavailable, continuing without it")
				planCache = cache.NewNoopPlanCache()
			}

			router := api.NewRouter(&api.Services{
				Optimizer: opt,
				Store:     store,
				Applier:   commit.NewApplier(store, logger.Log, opt.Settings.MinRemnantLength),
				Cache:     planCache,
				Log:       logger.Log,
			}, cfg.Server.AllowedOrigins)

			srv := &http.Server{
				Addr:    ":" + c.String("port"),
				Handler: router,
			}

			go func() {
				logger.Log.Info().Str("port", c.String("port")).Msg("Starting server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Log.Fatal().Err(err).Msg("Failed to start server")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			logger.Log.Info().Msg("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			logger.Log.Info().Msg("Server exited")
			return nil
		},
	}
}
