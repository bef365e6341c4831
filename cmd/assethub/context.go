package main

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/config"
	"github.com/CageChen/assethub/internal/logging"
	"github.com/CageChen/assethub/internal/serializer"
)

type globalFlags struct {
	config     string
	root       string
	serializer string
	logLevel   string
}

// commandContext lazily builds the configuration, logger and repository
// shared by every subcommand.
type commandContext struct {
	flags     *globalFlags
	overrides config.Overrides

	once   sync.Once
	config *config.Config
	logger *zap.Logger
	repo   *asset.Repository
	err    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.err = err
			return
		}
		o := c.overrides
		o.Root = c.flags.root
		o.SerializerPath = c.flags.serializer
		o.LogLevel = c.flags.logLevel
		cfg.Apply(o)
		if err := cfg.Validate(); err != nil {
			c.err = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			c.err = fmt.Errorf("create logger: %w", err)
			return
		}

		ser := serializer.NewLocked(
			serializer.NewExec(cfg.Serializer.Path, cfg.Serializer.Args, logger),
			cfg.Serializer.LockDir,
			logger,
		)
		repo, err := asset.Open(cfg.Root, ser,
			asset.WithLayout(asset.LayoutFromConfig(cfg)),
			asset.WithLogger(logger),
		)
		if err != nil {
			_ = logger.Sync()
			c.err = err
			return
		}

		c.config = cfg
		c.logger = logger
		c.repo = repo
	})
	return c.err
}

func (c *commandContext) repository() (*asset.Repository, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return c.repo, nil
}

func (c *commandContext) close() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
