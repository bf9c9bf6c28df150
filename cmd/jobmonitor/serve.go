package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mikekulinski/jobmonitor/pkg/health"
	"github.com/mikekulinski/jobmonitor/pkg/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes /metrics over HTTP and the gRPC health service until ctx is done.
func (c command) Serve(ctx context.Context, f ServeFlags) error {
	metricsAddr := f.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = c.app.cfg.Serve.MetricsAddr
	}
	grpcAddr := f.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = c.app.cfg.Serve.GRPCAddr
	}

	metricsLis, err := net.Listen("tcp", metricsAddr)
	if err != nil {
		return fmt.Errorf("listening on [%s]: %w", metricsAddr, err)
	}
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = metricsLis.Close()
		return fmt.Errorf("listening on [%s]: %w", grpcAddr, err)
	}
	return c.serve(ctx, metricsLis, grpcLis)
}

func (c command) serve(ctx context.Context, metricsLis, grpcLis net.Listener) error {
	logger := c.app.logger

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(health.LoggingUnaryInterceptor(logger)))
	hs := health.NewServer(c.app.checker, health.WithLogger(logger))
	hs.Register(grpcSrv)

	logger.Info().
		Str("metrics_addr", metricsLis.Addr().String()).
		Str("grpc_addr", grpcLis.Addr().String()).
		Msg("Serving metrics and health")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return hs.Run(ctx) })
	eg.Go(func() error {
		if err := httpSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// Health asks a running server for its status and prints it.
func (c command) Health(ctx context.Context, out io.Writer, f ServeFlags) error {
	addr := f.Addr
	if addr == "" {
		addr = c.app.cfg.Serve.GRPCAddr
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := health.Check(ctx, addr, f.Service, uuid.New().String())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, st)
	return nil
}

// createServeCommand creates the serve subcommand
func createServeCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics and the gRPC health service",
		Long: `Serve Prometheus metrics on /metrics and the standard gRPC health service. Health is
SERVING while the ZooKeeper session is live. Stops on SIGINT or SIGTERM.

Examples:
  jobmonitor serve
  jobmonitor serve --metrics-addr=:19090 --grpc-addr=:19091`,
		Annotations: map[string]string{annotationStore: storeLazy},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Serve(ctx, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "metrics listen address (overrides config)")
	cmd.Flags().StringVar(&flags.GRPCAddr, "grpc-addr", "", "gRPC health listen address (overrides config)")
	return cmd
}

// createHealthCommand creates the health subcommand
func createHealthCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "health",
		Short:       "Query the health of a running jobmonitor serve",
		Annotations: map[string]string{annotationStore: storeNone},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Health(cmd.Context(), cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", "", "address of the gRPC health service (defaults to serve.grpc_addr)")
	cmd.Flags().StringVar(&flags.Service, "service", "", "service to check, empty for the overall status")
	return cmd
}
