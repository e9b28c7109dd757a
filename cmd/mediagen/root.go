package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/llm/factory"
	"github.com/BaSui01/mediagen/storage"
)

// dependencies 是命令树的外部依赖，测试中替换
type dependencies struct {
	registry    *factory.Registry
	lookupEnv   config.LookupEnvFunc
	now         func() time.Time
	newUploader func(cfg config.StorageConfig, logger *zap.Logger) (storage.Uploader, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		registry:    factory.Default(),
		now:         time.Now,
		newUploader: storage.NewUploader,
	}
}

// commandContext 在子命令之间共享配置与 logger，首次使用时加载
type commandContext struct {
	deps dependencies

	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	once   sync.Once
	cfg    *config.Config
	logger *zap.Logger
	err    error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		loader := config.NewLoader()
		if path := strings.TrimSpace(c.configFlag); path != "" {
			loader = loader.WithConfigPath(path)
		}
		if c.deps.lookupEnv != nil {
			loader = loader.WithLookupEnv(c.deps.lookupEnv)
		}

		cfg, err := loader.Load()
		if err != nil {
			c.err = err
			return
		}
		if c.logLevelFlag != "" {
			cfg.Log.Level = c.logLevelFlag
		}
		if c.logFormatFlag != "" {
			cfg.Log.Format = c.logFormatFlag
		}
		if err := cfg.Validate(); err != nil {
			c.err = fmt.Errorf("invalid config: %w", err)
			return
		}

		c.cfg = cfg
		c.logger = initLogger(cfg.Log)
	})
	return c.cfg, c.err
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(defaultDependencies())
}

func newRootCommandWith(deps dependencies) *cobra.Command {
	d := defaultDependencies()
	if deps.registry != nil {
		d.registry = deps.registry
	}
	if deps.now != nil {
		d.now = deps.now
	}
	if deps.newUploader != nil {
		d.newUploader = deps.newUploader
	}
	d.lookupEnv = deps.lookupEnv
	ctx := &commandContext{deps: d}

	rootCmd := &cobra.Command{
		Use:           "mediagen",
		Short:         "Multi-provider video generation and comparison",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&ctx.logFormatFlag, "log-format", "", "Log format: console, json")

	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newLedgerCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mediagen %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}
