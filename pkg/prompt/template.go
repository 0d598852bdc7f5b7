package prompt

import (
	"fmt"
	"strings"
)

// Template renders a role-tagged conversation into the prompt string a model
// family was trained on.
type Template interface {
	// Name is the registry key of the template.
	Name() string

	// Roles returns the labels used for user and assistant turns.
	Roles() (user, assistant string)

	// System returns the default system message.
	System() string

	// StopStrings are sequences that end an assistant turn.
	StopStrings() []string

	// Render builds the prompt. An empty Content marks a placeholder turn
	// that the model is expected to complete.
	Render(system string, turns []Turn) string
}

// Turn is one rendered message.
type Turn struct {
	Role    string
	Content string
}

// SeparatorStyle selects how turns are joined.
type SeparatorStyle string

// Supported separator styles.
const (
	// StyleAddColonSingle renders "system<sep>role: msg<sep>...role:".
	StyleAddColonSingle SeparatorStyle = "add_colon_single"

	// StyleAddColonTwo alternates sep and sep2 after each turn.
	StyleAddColonTwo SeparatorStyle = "add_colon_two"

	// StyleNoColonSingle renders "system" then "role msg<sep>" with no colon.
	StyleNoColonSingle SeparatorStyle = "no_colon_single"

	// StyleLlama2 embeds the system block in the first user turn.
	StyleLlama2 SeparatorStyle = "llama2"

	// StyleChatML renders "<|im_start|>role\nmsg<|im_end|>\n" blocks.
	StyleChatML SeparatorStyle = "chatml"
)

// Valid reports whether s is a known style.
func (s SeparatorStyle) Valid() bool {
	switch s {
	case StyleAddColonSingle, StyleAddColonTwo, StyleNoColonSingle, StyleLlama2, StyleChatML:
		return true
	}
	return false
}

// systemPlaceholder is replaced by the system message in SystemTemplate.
const systemPlaceholder = "{system_message}"

// Conversation is a Template described by separator metadata. It is never
// mutated after registration; Render builds the prompt from its arguments.
type Conversation struct {
	TemplateName string         `yaml:"name"`
	Patterns     []string       `yaml:"patterns"`
	Style        SeparatorStyle `yaml:"style"`

	// SystemTemplate wraps the system message; it must contain
	// "{system_message}" when set.
	SystemTemplate string `yaml:"system_template"`
	SystemMessage  string `yaml:"system_message"`

	// RoleNames holds the user and assistant labels, in that order.
	RoleNames []string `yaml:"roles"`

	Sep     string   `yaml:"sep"`
	Sep2    string   `yaml:"sep2"`
	StopStr []string `yaml:"stop"`
}

var _ Template = (*Conversation)(nil)

// Name returns the template name.
func (c *Conversation) Name() string { return c.TemplateName }

// Roles returns the user and assistant labels.
func (c *Conversation) Roles() (string, string) { return c.RoleNames[0], c.RoleNames[1] }

// System returns the default system message.
func (c *Conversation) System() string { return c.SystemMessage }

// StopStrings returns the stop sequences.
func (c *Conversation) StopStrings() []string { return c.StopStr }

// Validate checks the template definition.
func (c *Conversation) Validate() error {
	if c.TemplateName == "" {
		return fmt.Errorf("template name is required")
	}
	if !c.Style.Valid() {
		return fmt.Errorf("template %q: unknown separator style %q", c.TemplateName, c.Style)
	}
	if len(c.RoleNames) != 2 || c.RoleNames[0] == "" || c.RoleNames[1] == "" {
		return fmt.Errorf("template %q: roles must hold a user and an assistant label", c.TemplateName)
	}
	if c.SystemTemplate != "" && !strings.Contains(c.SystemTemplate, systemPlaceholder) {
		return fmt.Errorf("template %q: system_template must contain %s", c.TemplateName, systemPlaceholder)
	}
	return nil
}

func (c *Conversation) systemPrompt(system string) string {
	if c.SystemTemplate == "" {
		return system
	}
	return strings.ReplaceAll(c.SystemTemplate, systemPlaceholder, system)
}

// Render builds the prompt for turns using the template's separator style.
func (c *Conversation) Render(system string, turns []Turn) string {
	sys := c.systemPrompt(system)
	seps := [2]string{c.Sep, c.Sep2}

	var b strings.Builder
	switch c.Style {
	case StyleAddColonSingle:
		b.WriteString(sys + c.Sep)
		for _, t := range turns {
			if t.Content != "" {
				b.WriteString(t.Role + ": " + t.Content + c.Sep)
			} else {
				b.WriteString(t.Role + ":")
			}
		}

	case StyleAddColonTwo:
		b.WriteString(sys + seps[0])
		for i, t := range turns {
			if t.Content != "" {
				b.WriteString(t.Role + ": " + t.Content + seps[i%2])
			} else {
				b.WriteString(t.Role + ":")
			}
		}

	case StyleNoColonSingle:
		b.WriteString(sys)
		for _, t := range turns {
			if t.Content != "" {
				b.WriteString(t.Role + t.Content + c.Sep)
			} else {
				b.WriteString(t.Role)
			}
		}

	case StyleLlama2:
		for i, t := range turns {
			switch {
			case t.Content == "":
				b.WriteString(t.Role)
			case i == 0:
				b.WriteString(sys + t.Content)
			default:
				b.WriteString(t.Role + " " + t.Content + seps[i%2])
			}
		}

	case StyleChatML:
		if sys != "" {
			b.WriteString(sys + c.Sep + "\n")
		}
		for _, t := range turns {
			if t.Content != "" {
				b.WriteString(t.Role + "\n" + t.Content + c.Sep + "\n")
			} else {
				b.WriteString(t.Role + "\n")
			}
		}
	}

	return b.String()
}
