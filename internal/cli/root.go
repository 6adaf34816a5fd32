// Package cli carries the codeaudit command tree and the wiring between
// config, infrastructure and the application services.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/codeaudit/internal/application/audit"
	"github.com/bryanwahyu/codeaudit/internal/application/export"
	"github.com/bryanwahyu/codeaudit/internal/config"
	"github.com/bryanwahyu/codeaudit/internal/infra/db"
	"github.com/bryanwahyu/codeaudit/internal/infra/executor/local"
	"github.com/bryanwahyu/codeaudit/internal/infra/parsers"
	"github.com/bryanwahyu/codeaudit/internal/infra/storage"
	"github.com/bryanwahyu/codeaudit/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:          "codeaudit [command]",
		SilenceUsage: true,
		Short:        "Codeaudit runs static analyzers and persists their findings.",
		Long: `Codeaudit orchestrates a registry of static analysis tools (bandit, mypy,
radon, vulture, eslint) against one project or a whole workspace, normalizes
their output into a uniform schema and stores it idempotently in SQL.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml)")
	rootCmd.AddCommand(
		newSeedDBCmd(),
		newRunToolCmd(),
		newAuditCmd(),
		newExportCmd(),
		newAnalyzeCmd(),
		newServeCmd(),
	)
}

func Execute() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = "config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	var err error
	cfg, err = config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
}

// runtime bundles the pieces every command needs.
type runtime struct {
	log     hclog.Logger
	conn    *sql.DB
	dialect db.Dialect
	repo    *db.ScanRepository
	errs    *db.ScanErrorRepository
}

func openRuntime(ctx context.Context) (*runtime, error) {
	log := logging.NewLogger(cfg, "codeaudit")

	conn, dialect, err := db.Connect(ctx, cfg.Database.Driver, cfg.DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}

	repo := db.NewScanRepository(conn, dialect)
	if cfg.Database.Echo {
		echoLog := log.Named("sql")
		repo.WithEcho(func(q string) { echoLog.Info(q) })
	}

	return &runtime{
		log:     log,
		conn:    conn,
		dialect: dialect,
		repo:    repo,
		errs:    db.NewScanErrorRepository(conn, dialect),
	}, nil
}

func (rt *runtime) Close() { rt.conn.Close() }

// auditService wires the full pipeline, including optional artifact
// archival when MinIO is configured.
func (rt *runtime) auditService(ctx context.Context) (*audit.Service, error) {
	if err := audit.CheckRegistry(local.Supported(), parsers.Supported()); err != nil {
		return nil, err
	}

	svc := audit.Service{
		Repo:      rt.repo,
		Errors:    rt.errs,
		Runner:    local.NewRunner(rt.log.Named("runner")),
		Converter: parsers.NewNormalizer(cfg.Audit.MinConfidence),
		Log:       rt.log.Named("audit"),
		Jobs:      cfg.Audit.Jobs,
		Timeout:   time.Duration(cfg.Audit.TimeoutSeconds) * time.Second,
	}

	if cfg.Minio.Endpoint != "" {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.BucketName,
			cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL,
			rt.log.Named("storage"))
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Artifacts = store
	}

	return audit.New(svc)
}

func (rt *runtime) exportService() *export.Service {
	return &export.Service{
		Repo:           rt.repo,
		Log:            rt.log.Named("export"),
		IncludeMetrics: cfg.IncludeMetrics(),
	}
}
