package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/andy6609/joke-server/internal/joke"
)

func main() {
	host := flag.String("host", joke.DefaultHost, "address to bind")
	metricsAddr := flag.String("metrics-addr", ":9090", "metrics listen address (empty disables)")
	closeOnDecline := flag.Bool("close-on-decline", false, "end the session after answering N")
	publicIPURL := flag.String("public-ip-url", joke.DefaultPublicIPURL, "checkip endpoint (empty skips the lookup)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := joke.ParsePort(flag.Args())
	srv := joke.NewServer(joke.Config{
		Host:           *host,
		Port:           port,
		CloseOnDecline: *closeOnDecline,
		Logger:         logger,
	})
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)

	if *publicIPURL != "" {
		g.Go(func() error {
			var resolver joke.AddressResolver = joke.HTTPResolver{URL: *publicIPURL}
			lookupCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
			defer cancel()
			ip, err := resolver.Resolve(lookupCtx)
			if err != nil {
				logger.Warn("public address lookup failed", "error", err)
				return nil
			}
			logger.Info("joke server reachable", "public_ip", ip, "port", port)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		ms := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
