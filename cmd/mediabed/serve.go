package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/cobra"

	"github.com/mediabed/mediabed"
	"github.com/mediabed/mediabed/bing"
	"github.com/mediabed/mediabed/cache"
	"github.com/mediabed/mediabed/config"
	"github.com/mediabed/mediabed/database"
	mediabedhttp "github.com/mediabed/mediabed/http"
	"github.com/mediabed/mediabed/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the Mediabed HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("domain", "", "host stable media URLs are minted under")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	catalog, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	edgeCache, err := cache.New(cache.Config{
		MaxEntries:  cfg.Cache.MaxEntries,
		PositiveTTL: cfg.Cache.PositiveTTL,
		NegativeTTL: cfg.Cache.NegativeTTL,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	blobs, err := telegram.New(telegram.Config{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		BaseURL:  cfg.Telegram.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	service, err := mediabed.NewService(catalog, blobs, edgeCache, mediabed.ServiceConfig{
		Domain: cfg.Server.Domain,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	wallpapers := bing.New(bing.Config{}, edgeCache)

	handlerConfig := mediabedhttp.HandlerConfig{
		Domain:          cfg.Server.Domain,
		AdminPath:       cfg.Server.AdminPath,
		RequireReadAuth: cfg.Auth.RequireReadAuth,
		Credentials: mediabedhttp.Credentials{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		},
		StaticDir: cfg.Server.StaticDir,
		CORS:      cfg.CORS,
	}

	handler := mediabedhttp.NewHandler(&handlerConfig, service, wallpapers)

	// Compress the JSON and admin surfaces only; media bytes are already
	// compressed formats.
	gzipWrapper, err := gzhttp.NewWrapper(gzhttp.ContentTypes([]string{
		"application/json",
		"text/html",
		"text/css",
		"text/plain",
		"application/javascript",
	}))
	if err != nil {
		return fmt.Errorf("create gzip wrapper: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      gzipWrapper(handler.Router()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "domain", cfg.Server.Domain)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
