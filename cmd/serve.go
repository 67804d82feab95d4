package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/heirloom-app/heirloom/internal/config"
	"github.com/heirloom-app/heirloom/internal/family"
	"github.com/heirloom-app/heirloom/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Heirloom API server",
		Long: `Starts the Heirloom HTTP API.

The API exposes the family directory, circular avatar crop sessions and the
guided creation wizard. Prompt suggestions come from the prompt catalog and,
when a provider is configured, from an LLM (Ollama, OpenAI or Gemini).`,
		Example: `  # Start server on default port 8888
  heirloom serve

  # Start server on custom port with LLM prompt suggestions
  HEIRLOOM_PROMPT_PROVIDER=ollama heirloom serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			dir, closeFamily, err := openFamily(cmd.Context(), cfg.Family)
			if err != nil {
				return err
			}
			defer closeFamily()
			service, err := newPromptService(cfg)
			if err != nil {
				return err
			}

			handler := handlers.New(cmd.Context(), handlers.Options{
				Geometry:       cfg.Geometry(),
				Quality:        cfg.Crop.Quality,
				UploadsDir:     cfg.Server.UploadsDir,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				Family:         dir,
				Prompts:        service,
			})

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Heirloom API available", "addr", addr, "url", "http://localhost"+addr, "prompt_provider", cfg.Prompts.Provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides server.port)")

	return cmd
}

// openFamily returns the configured family store and a func releasing it
func openFamily(ctx context.Context, cfg config.FamilyConfig) (family.Store, func(), error) {
	if cfg.Database != "" {
		store, err := family.OpenSQLite(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		members, err := family.ReadFile(cfg.File)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			store.Close()
			return nil, nil, err
		default:
			n, err := store.Seed(members)
			if err != nil {
				store.Close()
				return nil, nil, err
			}
			if n > 0 {
				slog.Info("Seeded family database", "path", cfg.Database, "members", n)
			}
		}
		return store, func() { store.Close() }, nil
	}

	dir, err := family.Load(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Watch {
		return dir, func() {}, nil
	}
	w, err := family.Watch(ctx, dir, cfg.File)
	if err != nil {
		return nil, nil, err
	}
	return dir, func() { w.Close() }, nil
}
