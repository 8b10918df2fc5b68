package cli

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/app"
	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/service"
	"github.com/story-cms-api/pkg/logger"
)

// commandContext lazily loads configuration and wires the application the
// first time a command needs it
type commandContext struct {
	backendFlag *string
	dataDirFlag *string
	verboseFlag *bool

	loadConfig func() (*config.Config, error)

	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext(backendFlag, dataDirFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		backendFlag: backendFlag,
		dataDirFlag: dataDirFlag,
		verboseFlag: verboseFlag,
		loadConfig:  config.Load,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		if c.backendFlag != nil && strings.TrimSpace(*c.backendFlag) != "" {
			cfg.Storage.Backend = strings.TrimSpace(*c.backendFlag)
		}
		if c.dataDirFlag != nil && strings.TrimSpace(*c.dataDirFlag) != "" {
			cfg.Storage.DataDir = strings.TrimSpace(*c.dataDirFlag)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() zerolog.Logger {
	level := "warn"
	format := "pretty"
	if cfg, err := c.ensureConfig(); err == nil && cfg.Log.Format != "" {
		format = cfg.Log.Format
	}
	if c.verboseFlag != nil && *c.verboseFlag {
		level = "debug"
	}
	return logger.NewWithWriter(os.Stderr, level, format)
}

func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = app.Build(ctx, cfg, c.logger())
	})
	return c.app, c.appErr
}

func (c *commandContext) services(ctx context.Context) (*service.Services, error) {
	a, err := c.ensureApp(ctx)
	if err != nil {
		return nil, err
	}
	return a.Services, nil
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}
