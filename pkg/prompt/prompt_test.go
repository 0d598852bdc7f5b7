package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runpod/vllm/pkg/proxy/types"
)

func TestConversation_Render(t *testing.T) {
	turns := []Turn{
		{Role: "U", Content: "hi"},
		{Role: "A", Content: "hello"},
		{Role: "U", Content: "bye"},
		{Role: "A"},
	}

	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{
			name: "add colon single",
			conv: Conversation{Style: StyleAddColonSingle, Sep: "\n### "},
			want: "SYS\n### U: hi\n### A: hello\n### U: bye\n### A:",
		},
		{
			name: "add colon two",
			conv: Conversation{Style: StyleAddColonTwo, Sep: " ", Sep2: "</s>"},
			want: "SYS U: hi A: hello</s>U: bye A:",
		},
		{
			name: "no colon single",
			conv: Conversation{Style: StyleNoColonSingle, Sep: "\n"},
			want: "SYSUhi\nAhello\nUbye\nA",
		},
		{
			name: "llama2",
			conv: Conversation{
				Style:          StyleLlama2,
				SystemTemplate: "[INST] <<SYS>>\n{system_message}\n<</SYS>>\n\n",
				Sep:            " ",
				Sep2:           " </s><s>",
			},
			want: "[INST] <<SYS>>\nSYS\n<</SYS>>\n\nhiA hello </s><s>U bye A",
		},
		{
			name: "chatml",
			conv: Conversation{
				Style:          StyleChatML,
				SystemTemplate: "<|im_start|>system\n{system_message}",
				Sep:            "<|im_end|>",
			},
			want: "<|im_start|>system\nSYS<|im_end|>\nU\nhi<|im_end|>\nA\nhello<|im_end|>\nU\nbye<|im_end|>\nA\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.Render("SYS", turns); got != tt.want {
				t.Errorf("Render() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		model string
		want  string
	}{
		{"vicuna_v1.1", "vicuna_v1.1"},
		{"lmsys/vicuna-7b-v1.5", "vicuna_v1.1"},
		{"meta-llama/Llama-2-7b-chat-hf", "llama-2"},
		{"teknium/OpenHermes-2.5", "chatml"},
		{"tatsu-lab/alpaca-7b", "alpaca"},
		{"facebook/opt-125m", FallbackName},
		{"", FallbackName},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := r.Resolve(tt.model).Name(); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestAssembler_Assemble(t *testing.T) {
	a, err := NewAssembler(NewRegistry(), "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Assemble("facebook/opt-125m", []types.ChatMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi!"},
		{Role: "user", Content: "Bye"},
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := "Be brief.\n### Human: Hello\n### Assistant: Hi!\n### Human: Bye\n### Assistant:"
	if got != want {
		t.Errorf("Assemble() =\n%q\nwant\n%q", got, want)
	}
}

func TestAssembler_DefaultSystem(t *testing.T) {
	a, _ := NewAssembler(NewRegistry(), "")

	got, err := a.Assemble("vicuna", []types.ChatMessage{{Role: "user", Content: "Hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "A chat between a curious user") {
		t.Errorf("default system message missing: %q", got)
	}
	if !strings.HasSuffix(got, " USER: Hi ASSISTANT:") {
		t.Errorf("unexpected tail: %q", got)
	}
}

func TestAssembler_UnknownRole(t *testing.T) {
	a, _ := NewAssembler(NewRegistry(), "")

	_, err := a.Assemble("m", []types.ChatMessage{
		{Role: "user", Content: "Hi"},
		{Role: "narrator", Content: "Meanwhile"},
	})

	var roleErr *UnknownRoleError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected UnknownRoleError, got %v", err)
	}
	if err.Error() != "Unknown role: narrator" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestAssembler_ForcedTemplate(t *testing.T) {
	if _, err := NewAssembler(NewRegistry(), "missing"); err == nil {
		t.Error("expected error for unknown forced template")
	}

	a, err := NewAssembler(NewRegistry(), "chatml")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Template("lmsys/vicuna-7b").Name(); got != "chatml" {
		t.Errorf("forced template ignored, got %q", got)
	}
}

func TestAssembler_Plain(t *testing.T) {
	a, _ := NewAssembler(NewRegistry(), "")
	if got := a.Plain("  raw\n"); got != "  raw\n" {
		t.Errorf("Plain() = %q", got)
	}
}

const customTemplates = `
templates:
  - name: mistral-instruct
    patterns: ["mistral"]
    style: llama2
    system_template: "[INST] {system_message}\n"
    roles: ["[INST]", "[/INST]"]
    sep: " "
    sep2: "</s>"
    stop: ["</s>"]
`

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(customTemplates), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	tmpl := r.Resolve("mistralai/Mistral-7B-Instruct-v0.1")
	if tmpl.Name() != "mistral-instruct" {
		t.Fatalf("Resolve() = %q", tmpl.Name())
	}
	if stops := tmpl.StopStrings(); len(stops) != 1 || stops[0] != "</s>" {
		t.Errorf("stop strings = %v", stops)
	}
	if r.Names()[0] != "mistral-instruct" {
		t.Errorf("file templates must come first: %v", r.Names())
	}
}

func TestParseTemplates_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad style":      "templates:\n  - name: x\n    style: fancy\n    roles: [a, b]\n",
		"missing roles":  "templates:\n  - name: x\n    style: chatml\n",
		"no placeholder": "templates:\n  - name: x\n    style: chatml\n    roles: [a, b]\n    system_template: nope\n",
		"duplicate":      "templates:\n  - {name: x, style: chatml, roles: [a, b]}\n  - {name: x, style: chatml, roles: [a, b]}\n",
		"missing name":   "templates:\n  - style: chatml\n    roles: [a, b]\n",
		"malformed yaml": "templates: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTemplates([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegistry_LoadFileKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(customTemplates), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("templates: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, ok := r.Lookup("mistral-instruct"); !ok {
		t.Error("previous templates must stay active")
	}
}
