package prompt

import (
	"fmt"

	"github.com/runpod/vllm/pkg/proxy/types"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UnknownRoleError is returned for a message whose role is not system, user
// or assistant.
type UnknownRoleError struct {
	Role string
}

// Error implements the error interface.
func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("Unknown role: %s", e.Role)
}

// Assembler turns chat histories into prompt strings.
type Assembler struct {
	registry *Registry

	// forced, when set, is used for every model instead of name resolution.
	forced string
}

// NewAssembler returns an assembler over registry. When template is not
// empty it names the template used for every request.
func NewAssembler(registry *Registry, template string) (*Assembler, error) {
	if template != "" {
		if _, ok := registry.Lookup(template); !ok {
			return nil, fmt.Errorf("unknown chat template %q", template)
		}
	}
	return &Assembler{registry: registry, forced: template}, nil
}

// Template returns the template that applies to model.
func (a *Assembler) Template(model string) Template {
	if a.forced != "" {
		if t, ok := a.registry.Lookup(a.forced); ok {
			return t
		}
	}
	return a.registry.Resolve(model)
}

// Assemble renders messages with the template for model. A system message
// replaces the template's system text; user and assistant messages become
// turns; a trailing empty assistant turn is appended for the model to
// complete.
func (a *Assembler) Assemble(model string, messages []types.ChatMessage) (string, error) {
	tmpl := a.Template(model)
	user, assistant := tmpl.Roles()
	system := tmpl.System()

	turns := make([]Turn, 0, len(messages)+1)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			turns = append(turns, Turn{Role: user, Content: m.Content})
		case RoleAssistant:
			turns = append(turns, Turn{Role: assistant, Content: m.Content})
		default:
			return "", &UnknownRoleError{Role: m.Role}
		}
	}
	turns = append(turns, Turn{Role: assistant})

	return tmpl.Render(system, turns), nil
}

// Plain returns a raw prompt unchanged.
func (a *Assembler) Plain(prompt string) string {
	return prompt
}
