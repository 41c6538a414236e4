package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"armature/internal/components"
	"armature/internal/config"
	"armature/internal/naming"
	"armature/internal/rig"
	"armature/internal/scene"
)

// Result reports the outcome of a single health check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// statfsFunc reports total and available bytes for the filesystem holding
// path. Swappable in tests.
type statfsFunc func(path string) (total, free uint64, err error)

var statfs statfsFunc = realStatfs

// freeSpaceFloor is the fraction of the scene volume that must stay free
// before the disk check starts failing.
const freeSpaceFloor = 0.05

// RunAll executes every health check for the given config. The scene check
// opens the database, so RunAll fails that check when an engine process holds
// the scene lock.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckSceneFile(ctx, cfg.Paths.SceneFile),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, dir := range cfg.Paths.TemplateDirs {
		results = append(results, CheckDirectoryAccess("Template directory", dir))
	}
	results = append(results,
		CheckDiskSpace("Scene volume", filepath.Dir(cfg.Paths.SceneFile)),
		CheckNamingPreset(cfg.Naming.Preset),
		CheckBuildScripts(cfg.Build.BuildScripts),
		CheckComponentKinds(),
	)
	return results
}

// CheckSceneFile verifies the scene database opens and counts its rigs. A
// scene file that does not exist yet passes, the first session creates it.
func CheckSceneFile(ctx context.Context, path string) Result {
	const name = "Scene database"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "scene_file is not configured"}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first session)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", path, err)}
	}

	store, err := scene.OpenPath(path)
	if err != nil {
		if errors.Is(err, scene.ErrSceneLocked) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (locked by another process)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (open: %v)", path, err)}
	}
	defer store.Close()

	roots, err := store.NodesByKind(ctx, components.NodeKindRigRoot)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (query rigs: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d rigs)", path, len(roots))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace fails when the volume holding path is nearly full.
func CheckDiskSpace(name, path string) Result {
	total, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (statfs: %v)", path, err)}
	}
	if total == 0 {
		return Result{Name: name, Passed: true, Detail: "volume size unknown"}
	}
	detail := fmt.Sprintf("%s free of %s", formatBytes(free), formatBytes(total))
	if float64(free)/float64(total) < freeSpaceFloor {
		return Result{Name: name, Detail: detail + " (low)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNamingPreset verifies the configured preset is registered.
func CheckNamingPreset(preset string) Result {
	const name = "Naming preset"
	if _, err := naming.Find(preset); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q is not registered (have: %s)",
			preset, strings.Join(naming.PresetNames(), ", "))}
	}
	return Result{Name: name, Passed: true, Detail: preset}
}

// CheckBuildScripts verifies every configured build script ID resolves to a
// registered script.
func CheckBuildScripts(ids []string) Result {
	const name = "Build scripts"
	if len(ids) == 0 {
		return Result{Name: name, Passed: true, Detail: "none configured"}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := rig.LookupScript(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("unregistered: %s", strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(ids, ", ")}
}

// CheckComponentKinds fails when no component kinds are linked in, a build
// with an empty registry cannot create anything.
func CheckComponentKinds() Result {
	const name = "Component kinds"
	tags := components.KindTags()
	if len(tags) == 0 {
		return Result{Name: name, Detail: "no component kinds registered"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(tags, ", ")}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

func formatBytes(value uint64) string {
	const (
		kiB = 1 << 10
		miB = 1 << 20
		giB = 1 << 30
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
