package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/handler"
	"github.com/CageChen/assethub/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	var watch, open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the asset tree over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				ctx.overrides.Port = port
			}
			if cmd.Flags().Changed("watch") {
				ctx.overrides.Watch = &watch
			}
			if cmd.Flags().Changed("open") {
				ctx.overrides.Open = &open
			}
			if err := ctx.ensure(); err != nil {
				return err
			}
			return serve(cmd.Context(), ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on")
	cmd.Flags().BoolVar(&watch, "watch", true, "Watch the asset tree for changes")
	cmd.Flags().BoolVar(&open, "open", false, "Open the browser after starting")
	return cmd
}

func serve(ctx context.Context, c *commandContext) error {
	cfg, logger, repo := c.config, c.logger, c.repo

	logger.Info("AssetHub starting",
		zap.String("root", repo.Root().Abs()),
		zap.String("config", cfg.GetConfigFilePath()),
		zap.String("serializer", cfg.Serializer.Path),
		zap.Int("port", cfg.Port))

	handlers, err := handler.NewHandlers(repo, cfg.CacheSize, logger)
	if err != nil {
		return fmt.Errorf("create handlers: %w", err)
	}

	if cfg.Watch {
		w, err := watcher.New(cfg, logger)
		if err != nil {
			logger.Warn("failed to create file watcher", zap.Error(err))
		} else {
			w.OnChange(handlers.Cache.OnFileChange)
			w.OnChange(handlers.WS.OnFileChange)
			if err := w.Start(); err != nil {
				logger.Warn("failed to start file watcher", zap.Error(err))
			} else {
				logger.Info("file watcher enabled")
			}
			defer func() { _ = w.Stop() }()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.NewRouter(handlers, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	logger.Info("server listening", zap.String("url", url))
	if cfg.Open {
		go openBrowser(url)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
