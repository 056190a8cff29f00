// Command queueservice движок прогнозов очереди и рекомендаций времени выхода.
//
// Usage:
//
//	queueservice serve --config config.toml
//	queueservice run alerts
//	queueservice version
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/m04kA/SMC-QueueService/internal/scheduler"
)

// version проставляется при сборке через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "queueservice",
		Short:         "Queue prediction and departure alert engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(runCmd(&configPath))
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a)
		},
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job tick and exit",
		Long:      "Run one tick of a periodic job: queues, alerts, analytics or prune.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{scheduler.JobQueues, scheduler.JobAlerts, scheduler.JobAnalytics, scheduler.JobPrune},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.scheduler.RunOnce(ctx, args[0])
			if result != nil {
				fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			}
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// serve HTTP сервер и планировщик работают до сигнала завершения, ошибка одного останавливает оба
func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return a.scheduler.Start(gctx)
		})
	} else {
		a.log.Warn("Scheduler disabled, jobs run only via `run <job>`")
	}

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("Server stopped gracefully")
	return nil
}
