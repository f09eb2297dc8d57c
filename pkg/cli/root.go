package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/service"
	"github.com/dshills/aihub/pkg/storage"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// Version is the current version of aihub
	Version = "0.3.0"
)

// env carries configuration and shared dependencies to every subcommand.
// It is filled in by the root command's PersistentPreRunE.
type env struct {
	v         *viper.Viper
	configDir string
	cfg       *Config
	logger    *zap.Logger
	reg       *registry.Registry
	secrets   *storage.SecretStore
}

// store is an opened repository and the service over it
type store struct {
	repo  workflow.Repository
	svc   *service.WorkflowService
	close func() error
}

// recorder returns the repository's run log sink when it has one
func (s *store) recorder() (runLogStore, bool) {
	r, ok := s.repo.(runLogStore)
	return r, ok
}

// NewRootCommand creates the root cobra command for aihub
func NewRootCommand() *cobra.Command {
	e := &env{
		v:       viper.New(),
		logger:  zap.NewNop(),
		reg:     registry.Default(),
		secrets: storage.NewSecretStore(),
	}
	return newRootCommand(e)
}

func newRootCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aihub",
		Short: "aihub - AI-HUB Laboratory workflow editor",
		Long: `aihub edits AI pipelines as node graphs: triggers, LLM calls, knowledge
retrieval, tools, memory, guardrails, evaluators and actions joined by
directed connections.

Workflows are edited in a terminal canvas, stored in a local file, SQLite or
Redis, shared as JSON or YAML and served over a small REST API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&e.configDir, "config-dir", "", "Configuration directory (default: ~/.aihub)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("storage", "", "Storage driver (file|sqlite|redis)")
	_ = e.v.BindPFlag("log.debug", flags.Lookup("debug"))
	_ = e.v.BindPFlag("storage.driver", flags.Lookup("storage"))

	cmd.AddCommand(newWorkflowsCommand(e))
	cmd.AddCommand(newNewCommand(e))
	cmd.AddCommand(newExportCommand(e))
	cmd.AddCommand(newImportCommand(e))
	cmd.AddCommand(newValidateCommand(e))
	cmd.AddCommand(newNodesCommand(e))
	cmd.AddCommand(newEditCommand(e))
	cmd.AddCommand(newRunCommand(e))
	cmd.AddCommand(newLogsCommand(e))
	cmd.AddCommand(newServeCommand(e))
	cmd.AddCommand(newSecretCommand(e))

	return cmd
}

// setup loads configuration and builds the logger
func (e *env) setup(cmd *cobra.Command) error {
	dir, err := resolveConfigDir(e.configDir)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(e.v, dir)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	e.cfg = cfg
	e.logger = newLogger(cfg.Log, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())), cfg.Log.File)
	e.logger.Debug("configuration loaded",
		zap.String("config_dir", cfg.ConfigDir),
		zap.String("storage", cfg.Storage.Driver))
	return nil
}

// openStore opens the configured repository
func (e *env) openStore() (*store, error) {
	var (
		repo    workflow.Repository
		closeFn = func() error { return nil }
	)
	switch e.cfg.Storage.Driver {
	case DriverSQLite:
		r, err := storage.NewSQLiteWorkflowRepository(e.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, closeFn = r, r.Close
	case DriverRedis:
		r, err := storage.NewRedisWorkflowRepository(e.cfg.Storage.RedisAddr, e.logger)
		if err != nil {
			return nil, err
		}
		repo, closeFn = r, r.Close
	default:
		r, err := storage.NewFileWorkflowRepository(e.cfg.ConfigDir, e.logger)
		if err != nil {
			return nil, err
		}
		repo = r
	}

	e.logger.Debug("storage opened", zap.String("driver", e.cfg.Storage.Driver))
	return &store{
		repo:  repo,
		svc:   service.New(repo, e.logger),
		close: closeFn,
	}, nil
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
