package testsupport

import (
	"context"
	"testing"

	"armature/internal/config"
	"armature/internal/logging"
	"armature/internal/rig"
	"armature/internal/scene"
	"armature/internal/template"
)

// MustOpenScene opens a scene.Store for tests and registers cleanup.
func MustOpenScene(t testing.TB, cfg *config.Config) *scene.Store {
	t.Helper()

	store, err := scene.Open(cfg)
	if err != nil {
		t.Fatalf("scene.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRig opens a fresh scene for the given config and starts a rig session on
// it. The rig logs through the nop handler so test output stays quiet.
func NewRig(t testing.TB, cfg *config.Config, name string) (*scene.Store, *rig.Rig) {
	t.Helper()

	store := MustOpenScene(t, cfg)
	r := rig.New(rig.Options{
		Store:     store,
		Config:    cfg,
		Templates: template.NewManager(cfg.Paths.TemplateDirs, logging.NewNop()),
		Logger:    logging.NewNop(),
	})
	if err := r.StartSession(context.Background(), name); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return store, r
}
