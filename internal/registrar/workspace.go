package registrar

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the transient scratch tree for one synchronization pass.
// It is owned exclusively by that pass and removed on every exit path.
type Workspace struct {
	root string
}

// newWorkspace creates the per-container scratch tree with the fixed
// applications/icons/pixmaps subdirectories. Keying by container name keeps
// concurrent passes for distinct containers from sharing a tree.
func newWorkspace(root, container string) (*Workspace, error) {
	ws := &Workspace{root: filepath.Join(root, container)}
	for _, dir := range []string{ws.Applications(), ws.Icons(), ws.Pixmaps()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return ws, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Applications returns the harvested desktop-file directory.
func (w *Workspace) Applications() string { return filepath.Join(w.root, "applications") }

// Icons returns the harvested icon-theme directory.
func (w *Workspace) Icons() string { return filepath.Join(w.root, "icons") }

// Pixmaps returns the harvested pixmap directory.
func (w *Workspace) Pixmaps() string { return filepath.Join(w.root, "pixmaps") }

// Remove deletes the whole workspace tree.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.root)
}
