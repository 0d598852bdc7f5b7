package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned "Label: value" text (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML output.
	FormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat validates a --format flag value. Empty selects text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected text, json or yaml)", s)
	}
}

// Field is one labelled value in text output.
type Field struct {
	Label string
	Value any
}

// Describer is implemented by command results that have a text form.
type Describer interface {
	Describe() []Field
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter writes Describers as aligned fields and anything else with
// %v.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	d, ok := data.(Describer)
	if !ok {
		return []byte(fmt.Sprintf("%v\n", data)), nil
	}

	var out []byte
	for _, field := range d.Describe() {
		out = fmt.Appendf(out, "%s:\t%v\n", field.Label, field.Value)
	}
	return out, nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	d, ok := data.(Describer)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, field := range d.Describe() {
		fmt.Fprintf(tw, "%s:\t%v\n", field.Label, field.Value)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return sonic.ConfigStd.MarshalIndent(data, "", "  ")
	}
	return sonic.ConfigStd.Marshal(data)
}

// FormatTo writes data to writer in JSON format, followed by a newline.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	out, err := f.Format(data)
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// Format converts data to YAML format.
func (f *YAMLFormatter) Format(data any) ([]byte, error) {
	return yaml.Marshal(data)
}

// FormatTo writes data to writer in YAML format.
func (f *YAMLFormatter) FormatTo(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}
