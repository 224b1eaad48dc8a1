package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/annotator/internal/config"
	"github.com/and161185/annotator/internal/directory"
	"github.com/and161185/annotator/internal/idgen"
	"github.com/and161185/annotator/internal/index"
	"github.com/and161185/annotator/internal/migrate"
	"github.com/and161185/annotator/internal/repository/postgres"
	grpcserver "github.com/and161185/annotator/internal/server/grpc"
	"github.com/and161185/annotator/internal/service"
	"github.com/and161185/annotator/internal/userdetails"
)

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serverCreds(cfg config.Config) (credentials.TransportCredentials, error) {
	if !cfg.TLSEnabled() {
		return insecure.NewCredentials(), nil
	}
	return credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
}

// run migrates the schema, wires the service and serves until ctx is canceled
// or a termination signal arrives.
func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger, err := newLogger(cfg.Dev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	creds, err := serverCreds(cfg)
	if err != nil {
		return fmt.Errorf("load TLS cert/key: %w", err)
	}
	if !cfg.TLSEnabled() {
		logger.Warn("TLS disabled, serving plaintext")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := service.Repos{
		Annotations: postgres.NewAnnotationRepo(db),
		Documents:   postgres.NewDocumentRepo(db),
		Metadata:    postgres.NewMetadataRepo(db),
		Users:       postgres.NewUserRepo(db),
		Groups:      postgres.NewGroupRepo(db),
	}
	opts := []service.Option{service.WithBatchSize(cfg.BatchSize)}

	if cfg.RedisURL != "" {
		dir, err := directory.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = dir.Close() }()
		details := userdetails.NewProvider(userdetails.New(cfg.CacheTTL), dir, logger)
		opts = append(opts, service.WithDetails(details))
	} else {
		logger.Info("user directory not configured, owner details disabled")
	}

	if cfg.MeiliURL != "" {
		ix := index.NewMeili(cfg.MeiliURL, cfg.MeiliKey)
		if !ix.Healthy() {
			logger.Warn("meilisearch unreachable", zap.String("url", cfg.MeiliURL))
		}
		opts = append(opts, service.WithIndexer(ix))
	}

	svc := service.NewAnnotationService(repos, idgen.UUID{}, logger, opts...)

	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.AuthUnary([]byte(cfg.JWTKey)),
			grpcserver.LoggingUnary(logger),
		),
	)
	grpcserver.RegisterAnnotationsServer(s, grpcserver.New(svc, cfg.DefaultLimit))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", lis.Addr().String()), zap.Bool("tls", cfg.TLSEnabled()))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("server error", zap.Error(err))
			return err
		}
	}

	logger.Info("shutdown complete")
	return nil
}
