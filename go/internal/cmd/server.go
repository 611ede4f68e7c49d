package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/scoreboard/go/internal/gateway"
)

func setupServer(config *Config, services *Services, gw *gateway.Service) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Register gateway routes (websocket, REST and RPC)
	gw.RegisterRoutes(r)

	setupHealthCheck(r)
	r.Handle("/metrics", promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: config.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Server.Port),
		Handler:           h2c.NewHandler(c.Handler(r), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func setupHealthCheck(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Failed to write health check response")
		}
	})
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the spectator gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "HTTP port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			config := configFrom(c)
			if port := c.String("port"); port != "" {
				config.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			services := setupServices(ctx, config)
			defer services.Close()

			gatewayConfig := gateway.DefaultConfig()
			gatewayConfig.Watcher.Sync = services.syncOptions()
			gw := gateway.NewService(gatewayConfig, services.Store, services.Clock, services.Registry)

			server := setupServer(config, services, gw)

			go func() {
				if err := gw.Start(ctx); err != nil {
					log.Error().Err(err).Msg("gateway service failed")
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("addr", server.Addr).
					Str("store", config.Store.Backend).
					Msg("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("HTTP server failed: %w", err)
				}
			case <-ctx.Done():
				log.Info().Msg("received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("HTTP server shutdown failed")
			}

			log.Info().Msg("scoreboard shutdown complete")
			return nil
		},
	}
}
