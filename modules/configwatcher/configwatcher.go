// Package configwatcher mirrors a settings file into the shared state store
// and keeps it current. Every top-level and nested key of the watched YAML
// file lands at a dotted state path under the configured prefix, so other
// modules observe preference changes through ordinary state subscriptions
// instead of re-reading files.
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/audiostracker/appcore"
)

// ModuleName is the registration name for this module.
const ModuleName = "configwatcher"

// EventSettingsReloaded fires on the bus after a watched file change has
// been mirrored into the state store. Payload is the file path.
const EventSettingsReloaded = "settings:reloaded"

// Module watches one settings file.
type Module struct {
	appcore.BaseModule
	cfg     Config
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New returns a factory for the configwatcher module.
func New(cfg Config) appcore.ModuleFactory {
	return func(core *appcore.AppCore) appcore.Module {
		cfg.applyDefaults()
		return &Module{
			BaseModule: appcore.NewBaseModule(core, ModuleName),
			cfg:        cfg,
		}
	}
}

// Init loads the settings file into the state store and starts watching it
// for changes.
func (m *Module) Init(ctx context.Context) error {
	if err := m.reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory rather than the file: editors replace files on
	// save, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(m.cfg.Path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", m.cfg.Path, err)
	}

	m.watcher = watcher
	m.done = make(chan struct{})
	go m.watch()
	return nil
}

// Destroy stops the watcher and releases subscriptions. Idempotent.
func (m *Module) Destroy(ctx context.Context) error {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
		<-m.done
	}
	m.ReleaseSubscriptions()
	return nil
}

// watch runs until the watcher is closed; both channels close on Close, so
// Destroy needs no separate stop signal.
func (m *Module) watch() {
	defer close(m.done)
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.cfg.Path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.reload(); err != nil {
				m.Logger().Warn("Settings reload failed", "path", m.cfg.Path, "error", err)
				continue
			}
			m.Emit(EventSettingsReloaded, m.cfg.Path)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.Logger().Warn("Settings watcher error", "path", m.cfg.Path, "error", err)
		}
	}
}

// reload parses the settings file and writes every leaf key under the state
// prefix. The writes go through one batch so subscribers see the reload as a
// single burst after the full file applied.
func (m *Module) reload() error {
	data, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.cfg.Path, err)
	}

	settings := make(map[string]any)
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parsing %s: %w", m.cfg.Path, err)
	}

	store := m.Core().State()
	store.Batch(func(tx *appcore.StateTx) {
		writeLeaves(tx, m.cfg.StatePrefix, settings)
	})
	return nil
}

func writeLeaves(tx *appcore.StateTx, prefix string, node map[string]any) {
	for key, value := range node {
		path := prefix + "." + key
		if child, ok := value.(map[string]any); ok {
			writeLeaves(tx, path, child)
			continue
		}
		_ = tx.Set(path, value)
	}
}
