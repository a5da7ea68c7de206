package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vulnwatch/vulnwatch/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Vulnwatch HTTP API server",
	Long: `Start the HTTP API server for Vulnwatch.

This server provides:
- Enriched CVE endpoints (/cves, /cves/search, /cve/:cve_id)
- KEV catalog endpoints (/kev/*)
- Statistics endpoints (/stats/*)
- Cache administration (/cache/*)
- Health checks

Example:
  vulnwatch serve --addr :8080
  vulnwatch serve --addr 127.0.0.1:9090 --no-preload
`,
	RunE: runServe,
}

var (
	serverAddr string
	noPreload  bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "addr", "", "Listen address (host:port)")
	serveCmd.Flags().BoolVar(&noPreload, "no-preload", false, "Skip cache warm-up on startup")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindEnv("server.addr", "VULNWATCH_SERVER_ADDR")
}

func runServe(cmd *cobra.Command, args []string) error {
	srvLog := log.WithComponent("api-server")

	svc := buildServices()
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !noPreload {
		// Warm the catalog and recent-CVE caches so the first request is
		// fast. Failures here degrade startup, they never abort it.
		go svc.advisory.Preload(ctx)
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(svc.advisory, svc.catalog, svc.store, srvLog)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		srvLog.Infow("Starting Vulnwatch API server",
			"addr", cfg.Server.Addr,
			"workers", cfg.Worker.Count,
			"redis_addr", cfg.Redis.Addr,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	srvLog.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	srvLog.Info("Server stopped")
	return nil
}
