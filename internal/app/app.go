package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/delivery/grpc/handler"
	"storefront/internal/delivery/grpc/orderrpc"
	"storefront/internal/delivery/rest"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/reconciler"
	"storefront/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Registry
}

func New(cfg *config.Config) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.New(os.Stdout, cfg.Log.Level),
		metrics: metrics.NewRegistry(),
	}
}

func (a *App) Run() error {
	a.logger.Info("Starting storefront",
		"store", a.cfg.Store.Driver,
		"test_mode", a.cfg.Payment.TestMode,
		"gateway_env", a.cfg.Payment.Env)

	ctx := context.Background()

	stores, err := OpenStores(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer stores.Close()

	publisher := OpenPublisher(a.cfg.NATS, a.logger)
	defer publisher.Close()

	statusCache := OpenStatusCache(ctx, a.cfg.Redis, a.logger)
	defer statusCache.Close()

	verifier, err := auth.NewVerifier(a.cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	orderUseCase := usecase.NewOrderUseCase(stores.Orders, stores.Products, publisher, a.metrics, a.logger)
	paymentUseCase := NewPaymentUseCase(a.cfg, stores, statusCache, publisher, a.metrics, a.logger)
	if !paymentUseCase.TestMode() && a.cfg.Payment.SecretKey == "" {
		a.logger.Warn("ESEWA_SECRET_KEY is not set, live payment initiation will fail")
	}

	httpServer, err := a.initHTTPServer(orderUseCase, paymentUseCase, verifier)
	if err != nil {
		return err
	}

	grpcServer, lis, err := a.initGRPCServer(orderUseCase, verifier)
	if err != nil {
		return err
	}

	worker := reconciler.NewWorker(paymentUseCase, reconciler.Config{
		Interval:  a.cfg.Reconciler.Interval,
		MinAge:    a.cfg.Reconciler.MinAge,
		BatchSize: a.cfg.Reconciler.BatchSize,
	}, a.logger)

	return a.runServersWithGracefulShutdown(httpServer, grpcServer, lis, worker)
}

func (a *App) initHTTPServer(orders *usecase.OrderUseCase, payments *usecase.PaymentUseCase, verifier *auth.Verifier) (*http.Server, error) {
	h, err := rest.NewHandler(orders, payments, verifier, a.metrics, a.logger, rest.Options{
		ClientURL: a.cfg.Payment.ClientURL,
		RateRPS:   a.cfg.RateLimit.RPS,
		RateBurst: a.cfg.RateLimit.Burst,
	})
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              ":" + a.cfg.HTTP.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      a.cfg.Payment.StatusTimeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

func (a *App) initGRPCServer(orderUseCase *usecase.OrderUseCase, verifier *auth.Verifier) (*grpc.Server, net.Listener, error) {
	orderHandler := handler.NewOrderHandler(orderUseCase)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(a.loggingInterceptor(), handler.AuthInterceptor(verifier)),
	)

	orderrpc.RegisterOrderAdminServer(grpcServer, orderHandler)

	lis, err := net.Listen("tcp", ":"+a.cfg.GRPC.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on port %s: %w", a.cfg.GRPC.Port, err)
	}

	return grpcServer, lis, nil
}

func (a *App) runServersWithGracefulShutdown(httpServer *http.Server, grpcServer *grpc.Server, lis net.Listener, worker *reconciler.Worker) error {
	serverErrors := make(chan error, 2)

	go func() {
		a.logger.Info("Starting HTTP server", "port", a.cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		a.logger.Info("Starting gRPC server", "port", a.cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			serverErrors <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var workerDone sync.WaitGroup
	workerDone.Add(1)
	go func() {
		defer workerDone.Done()
		worker.Run(workerCtx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		a.logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig)
	}

	stopWorker()
	workerDone.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		a.logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	shutdownComplete := make(chan struct{})
	go func() {
		a.logger.Info("Stopping gRPC server gracefully")
		grpcServer.GracefulStop()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		a.logger.Info("Graceful shutdown completed")
	case <-ctx.Done():
		a.logger.Warn("Graceful shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	return runErr
}

func (a *App) loggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			a.logger.Warn("gRPC method failed",
				"method", info.FullMethod,
				"duration_ms", time.Since(started).Milliseconds(),
				"error", err)
		} else {
			a.logger.Info("gRPC method completed",
				"method", info.FullMethod,
				"duration_ms", time.Since(started).Milliseconds())
		}
		return resp, err
	}
}
