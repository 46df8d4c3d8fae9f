// Package main запускает HTTP-сервер консоли управления доставкой.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/backend"
	"github.com/mmeshcher/shipping-admin/internal/config"
	"github.com/mmeshcher/shipping-admin/internal/handler"
	"github.com/mmeshcher/shipping-admin/internal/middleware"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/order"
	"github.com/mmeshcher/shipping-admin/internal/repository"
	"github.com/mmeshcher/shipping-admin/internal/service"
	"github.com/mmeshcher/shipping-admin/internal/session"
)

type sessionStore interface {
	session.Store
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (sessionStore, error) {
	switch {
	case cfg.DatabaseURI != "":
		sugar.Infow("using postgres session store")
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	case cfg.RedisAddress != "":
		sugar.Infow("using redis session store", "addr", cfg.RedisAddress)
		return repository.NewRedisStore(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	default:
		sugar.Warnw("no persistent session store configured, sessions are kept in memory")
		return repository.NewMemoryStore(), nil
	}
}

type auditPublisher interface {
	audit.Publisher
	Close() error
}

type nopCloser struct{ audit.Nop }

func (nopCloser) Close() error { return nil }

func openPublisher(cfg *config.Config, logger *zap.Logger) (auditPublisher, error) {
	if cfg.AMQPURL == "" {
		return nopCloser{}, nil
	}
	return audit.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("session store initialization error", "error", err.Error())
	}
	defer store.Close()

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		sugar.Fatalw("audit publisher initialization error", "error", err.Error())
	}
	defer publisher.Close()

	client := backend.NewClient(cfg.BackendAddress,
		backend.WithRetryMax(cfg.BackendRetryMax),
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logger),
	)

	guard := session.NewGuard(store, func(token string) session.PermissionSource {
		return client.WithToken(token)
	}, logger)

	registry := order.NewRegistry(func(s *model.Session) *order.Controller {
		return order.NewController(client.WithToken(s.Token), s.Actor(),
			order.WithLogger(logger.With(zap.String("session", s.ID))),
			order.WithPublisher(publisher),
			order.WithObserver(middleware.OrderMetrics{}),
			order.WithPageSize(cfg.PageSize),
		)
	})

	svc := service.NewService(client, guard, registry, logger)
	guard.OnDestroy(svc.DropOrders)
	guard.Watch(registry.IDs)

	auth := middleware.NewSessionAuth(cfg.CookieSecret, guard, cfg.SecureCookie, logger)
	h := handler.NewHandler(svc, logger, auth)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	guard.StartJanitor(ctx, cfg.SessionSweepInterval)

	g.Go(func() error {
		sugar.Infow("starting shipping admin console", "addr", cfg.RunAddress, "backend", cfg.BackendAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
