package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appai "github.com/bryanwahyu/codeaudit/internal/application/ai"
	aiopenai "github.com/bryanwahyu/codeaudit/internal/infra/ai/openai"
	"github.com/bryanwahyu/codeaudit/internal/infra/httpserver"
	"github.com/bryanwahyu/codeaudit/internal/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			exports := rt.exportService()

			var aiSvc *appai.Service
			if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
				aiSvc = appai.NewService(aiopenai.NewClient(apiKey, cfg.AI.Model), exports)
			}

			health := middleware.HealthHandler(map[string]middleware.HealthChecker{
				"database": &middleware.DatabaseHealthChecker{DB: rt.conn},
			})
			handler := httpserver.NewRouter(rt.repo, rt.errs, exports, aiSvc, health, rt.log.Named("http"))

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				rt.log.Info("server listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-stop:
			case <-cmd.Context().Done():
			}
			rt.log.Info("shutting down server")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
