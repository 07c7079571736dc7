package tool

import (
	"fmt"
	"sync"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// CatalogNames is the advertised tool set, in the order presented to the
// model. Adding a tool means adding both a name here and a Register call;
// Verify catches a divergence at startup.
var CatalogNames = []string{
	"sort_contacts",
	"recent_log_lines",
	"markdown_index",
	"count_weekday_occurrences",
	"bake_cake",
}

// Registry holds registered tools. It is populated at startup and read-only
// afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Default returns a registry with every catalog tool registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&SortContactsTool{})
	r.Register(&RecentLogLinesTool{})
	r.Register(&MarkdownIndexTool{})
	r.Register(&CountWeekdayTool{})
	r.Register(&BakeCakeTool{})
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns all tools in OpenAI function-calling format, in
// registration order.
func (r *Registry) Definitions() []protocol.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]protocol.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, protocol.NewToolDefinition(
			t.Name(),
			t.Description(),
			t.Parameters(),
		))
	}
	return defs
}

// Verify checks that the registered tool set exactly matches the declared
// catalog. Called at startup so a half-added tool fails fast instead of
// surfacing as an unknown-tool error at dispatch time.
func (r *Registry) Verify(catalog []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declared := make(map[string]bool, len(catalog))
	for _, name := range catalog {
		declared[name] = true
		if _, ok := r.tools[name]; !ok {
			return fmt.Errorf("tool registry: catalog declares %q but no tool is registered", name)
		}
	}
	for name := range r.tools {
		if !declared[name] {
			return fmt.Errorf("tool registry: tool %q is registered but not in the catalog", name)
		}
	}
	return nil
}
