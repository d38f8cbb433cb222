package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/handler"
	"github.com/noah-isme/bookdb-api/internal/repository"
	"github.com/noah-isme/bookdb-api/internal/router"
	"github.com/noah-isme/bookdb-api/internal/service"
	"github.com/noah-isme/bookdb-api/pkg/cache"
	"github.com/noah-isme/bookdb-api/pkg/config"
	"github.com/noah-isme/bookdb-api/pkg/database"
	"github.com/noah-isme/bookdb-api/pkg/jobs"
	corsmiddleware "github.com/noah-isme/bookdb-api/pkg/middleware/cors"
	"github.com/noah-isme/bookdb-api/pkg/pdf"
	"github.com/noah-isme/bookdb-api/pkg/realtime"
	"github.com/noah-isme/bookdb-api/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, logr, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger, migrate bool) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if migrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			return err
		}
		logr.Info("migrations applied", zap.Strings("names", applied))
	}

	files, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.URLPrefix)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Documents.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis, 0)
		if err != nil {
			logr.Warn("redis unavailable, document cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Documents.CacheTTL, logr, true)
		}
	}

	hub := realtime.NewHub(realtime.Config{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.Realtime.PingInterval,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		CheckOrigin: func(r *http.Request) bool {
			return corsmiddleware.Allowed(cfg.CORS.AllowedOrigins, r.Header.Get("Origin"))
		},
	}, logr, metrics)
	notifications := service.NewNotificationService(hub, metrics, logr)

	documents := repository.NewDocumentRepository(db)
	pages := repository.NewDocumentPageRepository(db)
	bookmarks := repository.NewBookmarkRepository(db)

	var pageText *service.PageTextScheduler
	if cfg.PageText.Enabled {
		worker := service.NewPageTextWorker(pages, files, pdf.ExtractPageText, notifications, metrics, logr)
		queue := jobs.NewQueue("page-text", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.PageText.Workers,
			MaxRetries: cfg.PageText.Retries,
			Logger:     logr,
		})
		queue.Start(context.WithoutCancel(ctx))
		defer queue.Stop()
		pageText = service.NewPageTextScheduler(queue)
	}

	validate := validator.New()
	documentSvc := service.NewDocumentService(documents, pages, bookmarks, files, pdf.NewSplitter(), db,
		notifications, pageText, cacheSvc, metrics, validate, logr,
		service.DocumentServiceConfig{
			MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
			DefaultPageSize: cfg.Documents.DefaultPageSize,
			MaxPageSize:     cfg.Documents.MaxPageSize,
			CacheTTL:        cfg.Documents.CacheTTL,
		})
	bookmarkSvc := service.NewBookmarkService(bookmarks, pages, notifications, validate, logr)
	pageSvc := service.NewDocumentPageService(pages, notifications, logr)

	engine := router.New(cfg, logr, metrics, router.Handlers{
		Documents: handler.NewDocumentHandler(documentSvc, pageSvc, cfg.Storage.MaxUploadBytes),
		Bookmarks: handler.NewBookmarkHandler(bookmarkSvc),
		Realtime:  handler.NewRealtimeHandler(hub, notifications, validate, logr),
		Metrics:   handler.NewMetricsHandler(metrics, documents),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logr.Info("server exited")
	return nil
}
