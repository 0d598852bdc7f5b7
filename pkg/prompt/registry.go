package prompt

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry resolves the conversation template for a model name. File-loaded
// templates take precedence over the built-ins and can be replaced at runtime
// with LoadFile.
type Registry struct {
	mu       sync.RWMutex
	loaded   []*Conversation
	builtins []*Conversation
	fallback Template
}

// NewRegistry returns a registry holding the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{builtins: Builtins()}
	for _, c := range r.builtins {
		if c.TemplateName == FallbackName {
			r.fallback = c
		}
	}
	return r
}

// templateFile is the YAML layout accepted by LoadFile.
type templateFile struct {
	Templates []*Conversation `yaml:"templates"`
}

// ParseTemplates decodes and validates a YAML template document.
func ParseTemplates(data []byte) ([]*Conversation, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	seen := make(map[string]bool, len(f.Templates))
	for i, c := range f.Templates {
		if c == nil {
			return nil, fmt.Errorf("templates[%d] is empty", i)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		if seen[c.TemplateName] {
			return nil, fmt.Errorf("templates[%d]: duplicate template %q", i, c.TemplateName)
		}
		seen[c.TemplateName] = true
	}
	return f.Templates, nil
}

// LoadFile replaces the file-loaded templates with the contents of path. On
// error the previous set stays active.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}

	templates, err := ParseTemplates(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	r.mu.Lock()
	r.loaded = templates
	r.mu.Unlock()
	return nil
}

// Names lists the registered template names, file-loaded first.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.loaded)+len(r.builtins))
	for _, c := range r.loaded {
		names = append(names, c.TemplateName)
	}
	for _, c := range r.builtins {
		names = append(names, c.TemplateName)
	}
	return names
}

// Lookup returns the template registered under name exactly.
func (r *Registry) Lookup(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, set := range [][]*Conversation{r.loaded, r.builtins} {
		for _, c := range set {
			if c.TemplateName == name {
				return c, true
			}
		}
	}
	return nil, false
}

// Resolve returns the template for model: an exact template name match
// first, then the first template with a pattern contained in the lowercased
// model name, then the fallback.
func (r *Registry) Resolve(model string) Template {
	if t, ok := r.Lookup(model); ok {
		return t
	}

	lower := strings.ToLower(model)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, set := range [][]*Conversation{r.loaded, r.builtins} {
		for _, c := range set {
			for _, p := range c.Patterns {
				if p != "" && strings.Contains(lower, strings.ToLower(p)) {
					return c
				}
			}
		}
	}
	return r.fallback
}
