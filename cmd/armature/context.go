package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"armature/internal/config"
	"armature/internal/logging"
	"armature/internal/rig"
	"armature/internal/scene"
	"armature/internal/template"
)

type commandContext struct {
	rigFlag    *string
	sceneFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(rigFlag, sceneFlag, configFlag *string) *commandContext {
	return &commandContext{
		rigFlag:    rigFlag,
		sceneFlag:  sceneFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.sceneFlag != nil && strings.TrimSpace(*c.sceneFlag) != "" {
			expanded, err := config.ExpandPath(*c.sceneFlag)
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Paths.SceneFile = expanded
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// configPath returns the raw --config flag value, empty when unset.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) rigName() (string, error) {
	if c.rigFlag == nil || strings.TrimSpace(*c.rigFlag) == "" {
		return "", errors.New("no rig selected; pass --rig <name>")
	}
	return strings.TrimSpace(*c.rigFlag), nil
}

// withEngine opens the scene store and a rig façade over it, without binding
// a session. The store closes when fn returns.
func (c *commandContext) withEngine(fn func(*rig.Rig) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := cliLogger(cfg)
	if err != nil {
		return err
	}
	store, err := scene.Open(cfg)
	if err != nil {
		return wrapOpenError(err, cfg.Paths.SceneFile)
	}
	defer store.Close()

	r := rig.New(rig.Options{
		Store:     store,
		Config:    cfg,
		Templates: template.NewManager(cfg.Paths.TemplateDirs, log),
		Logger:    log,
	})
	return fn(r)
}

// withRig runs fn with a session bound to the rig named by --rig.
func (c *commandContext) withRig(ctx context.Context, fn func(*rig.Rig) error) error {
	name, err := c.rigName()
	if err != nil {
		return err
	}
	return c.withEngine(func(r *rig.Rig) error {
		if err := r.StartSession(ctx, name); err != nil {
			return err
		}
		return fn(r)
	})
}

// cliLogger routes engine logs to the log file only, so command output on
// stdout stays parseable.
func cliLogger(cfg *config.Config) (*slog.Logger, error) {
	if cfg.Paths.LogDir == "" {
		return logging.NewNop(), nil
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "armature.log")
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
}

func wrapOpenError(err error, scenePath string) error {
	if errors.Is(err, scene.ErrSceneLocked) {
		return fmt.Errorf("open scene: %s is in use by another armature process", scenePath)
	}
	return fmt.Errorf("open scene: %w", err)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
