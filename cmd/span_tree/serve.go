package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/config"
	"github.com/Avi18971911/SpanTree/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/SpanTree/internal/db/elasticsearch/client"
	"github.com/Avi18971911/SpanTree/internal/db/elasticsearch/exporter"
	"github.com/Avi18971911/SpanTree/internal/ingest/websocket"
	logsServer "github.com/Avi18971911/SpanTree/internal/otel_server/log/server"
	traceServer "github.com/Avi18971911/SpanTree/internal/otel_server/trace/server"
	"github.com/Avi18971911/SpanTree/internal/query_server/router"
	"github.com/Avi18971911/SpanTree/internal/session"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeOut = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest from OTLP and websocket feeds and serve queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("otlp-listen-address", ":4317", "OTLP gRPC listen address, empty to disable")
	cmd.Flags().String("http-listen-address", ":8081", "Query server listen address")
	cmd.Flags().String("websocket-url", "", "Websocket feed to read messages from, empty to disable")
	cmd.Flags().Bool("elasticsearch-enabled", false, "Periodically export spans to Elasticsearch")
	cmd.Flags().StringSlice("elasticsearch-addresses", []string{"http://localhost:9200"}, "Elasticsearch addresses")
	cmd.Flags().String("elasticsearch-index", bootstrapper.SpanIndexName, "Elasticsearch index for span documents")
	cmd.Flags().Duration("elasticsearch-export-interval", 10*time.Second, "Interval between exports")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s, err := newSession(cfg, registry, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("ingestion stopped: %w", err)
		}
		return nil
	})

	if cfg.Otlp.ListenAddress != "" {
		if err := startOtlpServer(gctx, g, cfg.Otlp.ListenAddress, s, logger); err != nil {
			return err
		}
	}
	startQueryServer(gctx, g, cfg.Http.ListenAddress, router.CreateRouter(s, registry, logger), logger)

	if cfg.Websocket.Url != "" {
		feed := websocket.NewFeed(cfg.Websocket.Url, s, logger)
		g.Go(func() error {
			if err := feed.Run(gctx); err != nil && gctx.Err() == nil {
				logger.Error("Websocket feed stopped", zap.Error(err))
			}
			return nil
		})
	}

	if cfg.Elasticsearch.Enabled {
		es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Elasticsearch.Addresses})
		if err != nil {
			return fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		g.Go(func() error {
			bs := bootstrapper.NewBootstrapper(es, logger)
			if err := bs.BootstrapElasticsearch(cfg.Elasticsearch.Index); err != nil {
				logger.Error("Failed to bootstrap elasticsearch, export disabled", zap.Error(err))
				return nil
			}
			ac := client.NewSpanTreeClientImpl(es, client.Async)
			exporter.NewExporter(ac, s, cfg.Elasticsearch.Index, logger).Run(gctx, cfg.Elasticsearch.ExportInterval)
			return nil
		})
	}

	logger.Info("Span tree session started", zap.String("session_id", s.Id()))
	return g.Wait()
}

func startOtlpServer(
	ctx context.Context,
	g *errgroup.Group,
	address string,
	ingester session.Ingester,
	logger *zap.Logger,
) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	srv := grpc.NewServer()
	protoTrace.RegisterTraceServiceServer(srv, traceServer.NewTraceServiceServerImpl(logger, ingester))
	protoLogs.RegisterLogsServiceServer(srv, logsServer.NewLogServiceServerImpl(logger, ingester))

	g.Go(func() error {
		logger.Info("gRPC service started, listening for OpenTelemetry traces and logs", zap.String("address", address))
		if err := srv.Serve(listener); err != nil {
			return fmt.Errorf("failed to serve OTLP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.GracefulStop()
		return nil
	})
	return nil
}

func startQueryServer(
	ctx context.Context,
	g *errgroup.Group,
	address string,
	handler http.Handler,
	logger *zap.Logger,
) {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("Starting query server", zap.String("address", address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve queries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeOut)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
}
