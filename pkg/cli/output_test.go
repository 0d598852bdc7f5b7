package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type queueSummary struct {
	Running int `json:"running" yaml:"running"`
	Waiting int `json:"waiting" yaml:"waiting"`
}

func (q queueSummary) Describe() []Field {
	return []Field{
		{Label: "Running", Value: q.Running},
		{Label: "Waiting sequences", Value: q.Waiting},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}

	out, err := f.Format("engine unavailable")
	if err != nil || string(out) != "engine unavailable\n" {
		t.Errorf("Format(string) = %q, %v", out, err)
	}

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, queueSummary{Running: 2, Waiting: 5}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	// Values line up in one column.
	if strings.Index(lines[0], "2") != strings.Index(lines[1], "5") {
		t.Errorf("values not aligned:\n%s", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	for _, indent := range []bool{false, true} {
		var buf bytes.Buffer
		if err := (&JSONFormatter{Indent: indent}).FormatTo(&buf, queueSummary{Running: 1, Waiting: 3}); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}

		var got queueSummary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if got.Running != 1 || got.Waiting != 3 {
			t.Errorf("round trip = %+v", got)
		}
		if indent != strings.Contains(buf.String(), "\n  ") {
			t.Errorf("indent=%v output %q", indent, buf.String())
		}
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatYAML).FormatTo(&buf, queueSummary{Running: 4}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got map[string]int
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got["running"] != 4 {
		t.Errorf("decoded %v", got)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatYAML, "*cli.YAMLFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		got := NewFormatter(tt.format)
		if name := typeName(got); name != tt.want {
			t.Errorf("NewFormatter(%q) = %s, want %s", tt.format, name, tt.want)
		}
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *TextFormatter:
		return "*cli.TextFormatter"
	case *JSONFormatter:
		return "*cli.JSONFormatter"
	case *YAMLFormatter:
		return "*cli.YAMLFormatter"
	}
	return "?"
}
