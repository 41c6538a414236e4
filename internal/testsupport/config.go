package testsupport

import (
	"path/filepath"
	"testing"

	"armature/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SceneFile = filepath.Join(base, "scene.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TemplateDirs = []string{filepath.Join(base, "templates")}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNamingPreset overrides the naming preset on the test config.
func WithNamingPreset(preset string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Naming.Preset = preset
	}
}

// WithBuildScripts sets the build script IDs seeded into new rig sessions.
func WithBuildScripts(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.BuildScripts = ids
	}
}

// WithGuideVisibility overrides the rig-wide guide visibility defaults.
func WithGuideVisibility(pivots, controls bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.GuidePivotVisibility = pivots
		b.cfg.Build.GuideControlVisibility = controls
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SceneFile)
}
