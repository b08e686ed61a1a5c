// Package prefs persists user interface preferences between CLI runs:
// the last-used format and quality, autostart, and theme.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tubequeue/tubequeue/common"
)

const prefsFile = "prefs.json"

// Prefs are the persisted preference values. Zero values fall back to
// defaults at load time.
type Prefs struct {
	Format    string `json:"format"`
	Quality   string `json:"quality"`
	AutoStart bool   `json:"auto_start"`
	Theme     string `json:"theme"`
}

// Defaults returns the preferences used when no file exists yet.
func Defaults() Prefs {
	return Prefs{
		Format:    "any",
		Quality:   "best",
		AutoStart: true,
		Theme:     "auto",
	}
}

// Manager loads and saves preferences in a config directory. The
// filesystem is abstracted so tests run against an in-memory fs.
type Manager struct {
	fs  afero.Fs
	dir string
}

// NewManager returns a preferences manager rooted at dir on fs. A nil fs
// uses the OS filesystem.
func NewManager(fs afero.Fs, dir string) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{fs: fs, dir: dir}
}

// ConfigDir resolves the tubequeue config directory, honoring the
// override environment variable.
func ConfigDir() (string, error) {
	if dir := os.Getenv(common.ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(base, "tubequeue"), nil
}

// Load reads the stored preferences, returning defaults when no file
// exists. Missing fields fall back to their defaults so older files stay
// readable.
func (m *Manager) Load() (Prefs, error) {
	p := Defaults()
	data, err := afero.ReadFile(m.fs, filepath.Join(m.dir, prefsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("reading prefs: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parsing prefs: %w", err)
	}
	if p.Format == "" {
		p.Format = "any"
	}
	if p.Quality == "" {
		p.Quality = "best"
	}
	if p.Theme == "" {
		p.Theme = "auto"
	}
	return p, nil
}

// Save writes the preferences, creating the config directory if needed.
func (m *Manager) Save(p Prefs) error {
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}
	if err := afero.WriteFile(m.fs, filepath.Join(m.dir, prefsFile), data, 0o644); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}
