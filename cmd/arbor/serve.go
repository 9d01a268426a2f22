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

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve the live tree over HTTP",
	Long: `Runs the engine loop and exposes the tree, its handles and its state as a
JSON API, with an SSE stream of builds and Prometheus metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		opts := optionsFrom(cmd, args)

		logger, err := cli.NewLogger(opts.LogLevel)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Metrics = reg

		api := httpAdapter.NewServer(nil, httpAdapter.WithMetrics(reg), httpAdapter.WithLogger(logger))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := cli.Setup(ctx, opts, arbor.WithLifecycleHooks(api.Hooks()))
		if err != nil {
			return err
		}
		defer rt.Close()
		api.Engine = rt.Engine

		runErrors := make(chan error, 1)
		go func() {
			runErrors <- rt.Engine.Run(ctx)
		}()

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Arbor Server on %s\n", srv.Addr)
			fmt.Printf("Serving tree '%s' from: %s\n", rt.Engine.RootID(), rt.Path)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case err := <-runErrors:
			if !errors.Is(err, context.Canceled) {
				logger.Error("engine loop stopped", "err", err)
			}
		case <-ctx.Done():
			fmt.Println("\nStart shutdown...")
		}

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				fmt.Printf("Error killing server: %v\n", err)
			}
		}
		fmt.Println("Arbor Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
