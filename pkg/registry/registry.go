// Package registry maps action_type keys to the handlers that execute them.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/nurture/pkg/protocol"
)

// Registry is built once at process start and injected into the engine. Factories are
// registered first; Initialize then creates one handler per factory with the shared
// dependencies.
type Registry struct {
	logger          *slog.Logger
	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
	handlers        map[string]protocol.ActionHandler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
		handlers:        make(map[string]protocol.ActionHandler),
	}
}

func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
}

// RegisterHandler installs a ready handler under actionType, replacing any factory-built one.
func (r *Registry) RegisterHandler(actionType string, handler protocol.ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[actionType] = handler
}

// Initialize creates a handler for every registered factory that has none yet.
func (r *Registry) Initialize(deps protocol.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, factory := range r.actionFactories {
		if _, exists := r.handlers[id]; exists {
			continue
		}

		handler, err := factory.Create(deps)
		if err != nil {
			return fmt.Errorf("failed to create action %s: %w", id, err)
		}

		r.handlers[id] = handler
	}

	return nil
}

// Handler returns the handler for an action type.
func (r *Registry) Handler(actionType string) (protocol.ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[actionType]

	return handler, ok
}

func (r *Registry) IsActionRegistered(actionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, factory := r.actionFactories[actionType]
	_, handler := r.handlers[actionType]

	return factory || handler
}

// ActionSchema returns the config schema of an action type, if its factory declares one.
func (r *Registry) ActionSchema(actionType string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, false
	}

	schema := factory.Schema()

	return schema, schema != nil
}

// GetAvailableActions returns the registered factories ordered by id.
func (r *Registry) GetAvailableActions() []protocol.ActionFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.ActionFactory, 0, len(r.actionFactories))
	for _, factory := range r.actionFactories {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if ptr, isPtr := v.(*T); isPtr {
			castV, ok = *ptr, true
		}

		if !ok {
			return nil, fmt.Errorf("plugin %s: %s symbol has type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded action plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
