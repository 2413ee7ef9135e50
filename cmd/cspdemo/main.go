package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ib-77/csp3/internal/config"
	"github.com/ib-77/csp3/internal/logging"
)

var (
	version = "0.1.0"

	bufferFlag  int
	linesFlag   int
	metricsFlag string
	holdFlag    bool

	rootCmd = &cobra.Command{
		Use:   "cspdemo",
		Short: "cspdemo - runs CSP process networks",
	}

	doubleCmd = &cobra.Command{
		Use:   "double [int...]",
		Short: "Double integers through an In/Out process pipeline",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseInts(args)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				values = []int{1, 2, 3}
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Select("cspdemo", cfg.Level, cfg.Development))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			if cfg.Addr != "" {
				srv := serveMetrics(cfg.Addr, reg, logger)
				defer shutdown(srv, logger)
			}

			res, err := newPipeline(cfg, logger, reg).double(ctx, values)
			if err != nil {
				return err
			}
			for _, v := range res {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}

			if holdFlag && cfg.Addr != "" {
				logger.Info("pipeline done, serving metrics until interrupted", zap.String("addr", cfg.Addr))
				<-ctx.Done()
			}
			return nil
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and the recognized environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", data)
			return config.Usage()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cspdemo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cspdemo version %s\n", version)
		},
	}
)

func init() {
	doubleCmd.Flags().IntVar(&bufferFlag, "buffer", 0, "Channel buffer size: 0 rendezvous, -1 unbounded (overrides CSP_BUFFER_SIZE)")
	doubleCmd.Flags().IntVar(&linesFlag, "lines", 0, "Number of doubling replicas (overrides CSP_LINES)")
	doubleCmd.Flags().StringVar(&metricsFlag, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides CSP_METRICS_ADDR)")
	doubleCmd.Flags().BoolVar(&holdFlag, "hold", false, "Keep serving metrics after the pipeline finished")

	rootCmd.AddCommand(doubleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment; flags set on the command line win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("buffer") {
		cfg.BufferSize = bufferFlag
	}
	if flags.Changed("lines") {
		cfg.Lines = linesFlag
	}
	if flags.Changed("metrics-addr") {
		cfg.Addr = metricsFlag
	}
	return cfg, cfg.Validate()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func shutdown(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
