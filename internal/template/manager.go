package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"armature/internal/fileutil"
	"armature/internal/logging"
)

const fileExt = ".json"

// ErrNotFound is returned when no template directory contains the requested
// template.
var ErrNotFound = errors.New("template not found")

// Info describes one stored template without loading its components.
type Info struct {
	Name string
	Path string
}

// Manager reads and writes template documents across an ordered list of
// directories. Earlier directories win on name collisions and receive new
// saves, so a per-project directory listed first shadows shared libraries.
type Manager struct {
	dirs []string
	log  *slog.Logger
}

// NewManager returns a manager over dirs. Directories are created lazily on
// the first save, never on load.
func NewManager(dirs []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		cleaned = append(cleaned, dir)
	}
	return &Manager{dirs: cleaned, log: logger}
}

// Dirs returns the search path in precedence order.
func (m *Manager) Dirs() []string {
	out := make([]string, len(m.dirs))
	copy(out, m.dirs)
	return out
}

// Save writes doc to the first template directory and returns the file path.
// An existing template with the same name is overwritten.
func (m *Manager) Save(doc *Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	if len(m.dirs) == 0 {
		return "", fmt.Errorf("save template %q: no template directories configured", doc.Name)
	}
	dir := m.dirs[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create template directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode template %q: %w", doc.Name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, slug(doc.Name)+fileExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write template %q: %w", doc.Name, err)
	}
	m.log.Info("saved template",
		logging.String(logging.FieldTemplate, doc.Name),
		logging.String("path", path),
		logging.Int("components", len(doc.Components)))
	return path, nil
}

// Load finds name in the search path and decodes it. Returns ErrNotFound
// (wrapped) when no directory has it.
func (m *Manager) Load(name string) (*Document, error) {
	path, err := m.Find(name)
	if err != nil {
		return nil, err
	}
	return readDocument(path)
}

// Find returns the path of the first directory entry matching name.
func (m *Manager) Find(name string) (string, error) {
	stem := slug(name)
	for _, dir := range m.dirs {
		path := filepath.Join(dir, stem+fileExt)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("template %q: %w", name, ErrNotFound)
}

// List enumerates templates across all directories, earliest directory
// winning on duplicate names. Results are sorted by name.
func (m *Manager) List() ([]Info, error) {
	seen := make(map[string]bool)
	var out []Info
	for _, dir := range m.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read template directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			doc, err := readDocument(path)
			if err != nil {
				m.log.Warn("skipping unreadable template",
					logging.String("path", path),
					logging.Error(err))
				continue
			}
			name := doc.Name
			if name == "" {
				name = strings.TrimSuffix(entry.Name(), fileExt)
			}
			key := slug(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Info{Name: name, Path: path})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the first directory entry matching name.
func (m *Manager) Delete(name string) error {
	path, err := m.Find(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	m.log.Info("deleted template",
		logging.String(logging.FieldTemplate, name),
		logging.String("path", path))
	return nil
}

// Export copies the stored template for name to dst, verifying the copy.
func (m *Manager) Export(name, dst string) error {
	path, err := m.Find(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(path, dst); err != nil {
		return fmt.Errorf("export template %q: %w", name, err)
	}
	return nil
}

// Import copies an external template file into the first template directory
// and returns the decoded document. The file must parse before it is copied.
func (m *Manager) Import(path string) (*Document, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if len(m.dirs) == 0 {
		return nil, fmt.Errorf("import template %q: no template directories configured", doc.Name)
	}
	dir := m.dirs[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template directory: %w", err)
	}
	dst := filepath.Join(dir, slug(doc.Name)+fileExt)
	if err := fileutil.CopyFileVerified(path, dst); err != nil {
		return nil, fmt.Errorf("import template %q: %w", doc.Name, err)
	}
	m.log.Info("imported template",
		logging.String(logging.FieldTemplate, doc.Name),
		logging.String("path", dst))
	return doc, nil
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template file %s: %w", path, err)
	}
	return &doc, nil
}
