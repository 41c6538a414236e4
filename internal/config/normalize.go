package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNaming()
	c.normalizeBuild()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SceneFile) == "" {
		c.Paths.SceneFile = defaultSceneFile
	}
	if value, ok := os.LookupEnv("ARMATURE_SCENE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.SceneFile = strings.TrimSpace(value)
	}
	if c.Paths.SceneFile, err = expandPath(c.Paths.SceneFile); err != nil {
		return fmt.Errorf("paths.scene_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if len(c.Paths.TemplateDirs) == 0 {
		c.Paths.TemplateDirs = []string{defaultTemplateDir}
	}
	dirs := make([]string, 0, len(c.Paths.TemplateDirs))
	seen := make(map[string]struct{}, len(c.Paths.TemplateDirs))
	for _, dir := range c.Paths.TemplateDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.template_dirs: %w", err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	if len(dirs) == 0 {
		expanded, err := expandPath(defaultTemplateDir)
		if err != nil {
			return fmt.Errorf("paths.template_dirs: %w", err)
		}
		dirs = []string{expanded}
	}
	c.Paths.TemplateDirs = dirs
	return nil
}

func (c *Config) normalizeNaming() {
	c.Naming.Preset = strings.TrimSpace(c.Naming.Preset)
	if c.Naming.Preset == "" {
		c.Naming.Preset = defaultNamingPreset
	}
}

func (c *Config) normalizeBuild() {
	scripts := make([]string, 0, len(c.Build.BuildScripts))
	seen := make(map[string]struct{}, len(c.Build.BuildScripts))
	for _, id := range c.Build.BuildScripts {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		scripts = append(scripts, trimmed)
	}
	c.Build.BuildScripts = scripts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
