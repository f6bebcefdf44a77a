package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"medsbuddy/internal/app"
	"medsbuddy/internal/auth"
	"medsbuddy/internal/config"
	apphttp "medsbuddy/internal/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, nil); err != nil {
		stop()
		logrus.Fatalf("server: %v", err)
	}
}

// run serves the API until ctx is cancelled. When ready is non-nil it
// receives the bound listener address once the server accepts connections.
func run(ctx context.Context, ready chan<- string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	repos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open repositories: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Warnf("close repositories: %v", err)
		}
	}()

	reports, closeCache, err := app.NewReportCache(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup cache: %w", err)
	}
	defer closeCache()

	services := app.NewServices(cfg, repos, reports, logger)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(
		services.Users,
		services.Medications,
		issuer,
		logger,
		apphttp.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AuthRateLimit:  rate.Limit(cfg.RateLimit.RPS),
			AuthRateBurst:  cfg.RateLimit.Burst,
		},
	)
	handler.RegisterRoutes(router)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{Handler: router}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", ln.Addr())
		serveErr <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}
