// Package module manages the units that register element and node types into
// a factory.
//
// Modules are compiled into the binary and announce themselves with Add,
// usually from an init function:
//
//	func init() { module.Add(basicModule{}) }
//
// A Manager selects which of them to load and lets each register its types.
// The Default manager reads an optional filter from the ModuleManager section of
// the configuration and rejects modules built against another APIVersion.
package module

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/registry"
)

// APIVersion must match Module.Version for a module to load. It changes with
// every incompatible change of the element, node or factory contracts.
const APIVersion = 1

// DefaultKey is the factory key of the Default manager.
const DefaultKey = "Default"

// Module registers a named, versioned set of types.
type Module interface {
	Name() string
	Version() int
	Register(f *registry.Factory) error
}

// Manager loads modules and lets them register their types.
type Manager interface {
	LoadModules() error
	RegisterTypes(f *registry.Factory) error
	Modules() []Module
}

// Constructor creates a manager from the ModuleManager configuration section.
type Constructor func(cfg config.Tree, logger *slog.Logger) (Manager, error)

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]Module)
)

// Add makes m available to managers. It returns false if a module with the
// same name was added before; the first one is kept.
func Add(m Module) bool {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, exists := catalog[m.Name()]; exists {
		return false
	}
	catalog[m.Name()] = m
	return true
}

// Builtin returns the added modules ordered by name.
func Builtin() []Module {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mods := make([]Module, 0, len(catalog))
	for _, m := range catalog {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name() < mods[j].Name() })
	return mods
}

// RegisterDefaults registers the Default manager constructor.
func RegisterDefaults(f *registry.Factory) {
	registry.Register[Constructor](f, DefaultKey, func(cfg config.Tree, logger *slog.Logger) (Manager, error) {
		return NewDefault(cfg, Builtin(), logger), nil
	})
}

// Default serves modules compiled into the binary.
type Default struct {
	filter    []string
	available []Module
	loaded    []Module
	logger    *slog.Logger
}

// NewDefault creates a manager over available. cfg may list the modules to load
// under "modules"; without it every available module loads.
func NewDefault(cfg config.Tree, available []Module, logger *slog.Logger) *Default {
	if logger == nil {
		logger = slog.Default()
	}
	return &Default{
		filter:    cfg.StringSlice("modules", nil),
		available: available,
		logger:    logger.With("component", "module-manager"),
	}
}

// LoadModules selects the modules to load. A filtered name without a module or
// a module with a different version fails the whole load.
func (d *Default) LoadModules() error {
	byName := make(map[string]Module, len(d.available))
	for _, m := range d.available {
		byName[m.Name()] = m
	}

	selected := d.available
	if len(d.filter) > 0 {
		selected = selected[:0:0]
		for _, name := range d.filter {
			m, ok := byName[name]
			if !ok {
				return errors.WrapInvalid(fmt.Errorf("%w: module %q", errors.ErrNotRegistered, name),
					"Default", "LoadModules", "resolve module")
			}
			selected = append(selected, m)
		}
	}

	loaded := make([]Module, 0, len(selected))
	for _, m := range selected {
		if m.Version() != APIVersion {
			return errors.WrapInvalid(
				fmt.Errorf("%w: module %q has version %d, want %d", errors.ErrIncompatibleModule, m.Name(), m.Version(), APIVersion),
				"Default", "LoadModules", "check version")
		}
		loaded = append(loaded, m)
		d.logger.Debug("Module loaded", "module", m.Name(), "version", m.Version())
	}

	d.loaded = loaded
	d.logger.Info("Modules loaded", "count", len(loaded))
	return nil
}

// RegisterTypes lets every loaded module register into f.
func (d *Default) RegisterTypes(f *registry.Factory) error {
	for _, m := range d.loaded {
		if err := m.Register(f); err != nil {
			return errors.Wrap(err, "Default", "RegisterTypes", fmt.Sprintf("register module %s", m.Name()))
		}
	}
	return nil
}

// Modules returns the loaded modules.
func (d *Default) Modules() []Module {
	return append([]Module(nil), d.loaded...)
}

// Setup creates the manager registered under key, loads its modules and
// registers their types into f.
func Setup(f *registry.Factory, key string, cfg config.Tree, logger *slog.Logger) (Manager, error) {
	ctor, ok := registry.Lookup[Constructor](f, key)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: module manager %q", errors.ErrNotRegistered, key),
			"module", "Setup", "lookup manager")
	}
	m, err := ctor(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "module", "Setup", "create manager")
	}
	if err := m.LoadModules(); err != nil {
		return nil, err
	}
	if err := m.RegisterTypes(f); err != nil {
		return nil, err
	}
	return m, nil
}
