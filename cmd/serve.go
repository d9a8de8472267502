package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addrkit/internal/api"
	"github.com/sells-group/addrkit/internal/provider"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the address API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		warmUp(ctx, env)

		srv := api.New(api.Deps{
			Catalog:     env.Catalog,
			Detector:    env.Detector,
			Registry:    env.Registry,
			Region:      cfg.Region,
			CORSOrigins: cfg.Server.CORSOrigins,
		})

		return startServer(ctx, srv.Router(), resolvePort(servePort, cfg.Server.Port))
	},
}

// warmUp loads the country catalog and the postcode widget script
// concurrently. Failures are logged; the server still starts and the
// affected endpoints report their degraded state.
func warmUp(ctx context.Context, env *appEnv) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := env.Catalog.LoadOrCache(gctx)
		if err != nil {
			zap.L().Warn("warm-up: country catalog unavailable", zap.Error(err))
			return nil
		}
		zap.L().Info("warm-up: country catalog ready", zap.Int("countries", len(list)))
		return nil
	})
	g.Go(func() error {
		k := provider.NewKoreaInput(env.Registry.Deps(), nil, provider.Callbacks{})
		if err := k.Prepare(gctx); err != nil {
			zap.L().Warn("warm-up: postcode widget unavailable", zap.Error(err))
			return nil
		}
		zap.L().Info("warm-up: postcode widget ready")
		return nil
	})
	_ = g.Wait()
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	<-done
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
